/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"net"
	"strings"
	"time"
)

// registerRegistrationHandlers wires CAP, AUTHENTICATE, PASS, NICK, USER,
// PING, PONG, OPER, QUIT, SETNAME and MONITOR (§4.H).
func registerRegistrationHandlers(r *Router) {
	r.Handle(CmdCap, handleCap)
	r.Handle(CmdAuth, handleAuthenticate)
	r.Handle(CmdPass, handlePass)
	r.Handle(CmdNick, handleNick)
	r.Handle(CmdUser, handleUser)
	r.Handle(CmdPing, handlePing)
	r.Handle(CmdPong, handlePong)
	r.Handle(CmdOper, handleOper)
	r.Handle(CmdQuit, handleQuit)
	r.Handle(CmdSetname, handleSetname)
	r.Handle(CmdMonitor, handleMonitor)
}

func handleQuit(ctx *MessageContext) {
	reason := "Client quit."
	if ctx.Msg.TrailingSet {
		reason = ctx.Msg.Trailing
	}
	ctx.Conn.Quit(reason)
	ctx.Handled()
}

func handlePing(ctx *MessageContext) {
	token := ctx.Msg.Trailing
	if token == "" && len(ctx.Msg.Params) > 0 {
		token = ctx.Msg.Params[0]
	}
	reply := NewPooledMessage()
	reply.Source = ctx.Conn.server.Hostname()
	reply.Command = CmdPong
	reply.Params = []string{ctx.Conn.server.Hostname()}
	reply.WithTrailing(token)
	ctx.Conn.Write(reply)
}

func handlePong(ctx *MessageContext) {
	token := ctx.Msg.Trailing
	if token == "" && len(ctx.Msg.Params) > 0 {
		token = ctx.Msg.Params[len(ctx.Msg.Params)-1]
	}
	ctx.Conn.ReceivedPong(token)
}

func handleCap(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdCap, ErrMissingParams.Error())
		return
	}

	sub := strings.ToUpper(msg.Params[0])
	switch sub {
	case CapLs:
		conn.Lock()
		conn.capsNegotiating = true
		conn.Unlock()
		reply := NewPooledMessage()
		reply.Source = conn.server.Hostname()
		reply.Command = CmdCap
		reply.Params = []string{conn.nickOrStar(), CapLs}
		reply.WithTrailing(CapLSString())
		conn.Write(reply)

	case CapList:
		conn.RLock()
		caps := conn.caps.String()
		conn.RUnlock()
		reply := NewPooledMessage()
		reply.Source = conn.server.Hostname()
		reply.Command = CmdCap
		reply.Params = []string{conn.nickOrStar(), CapList}
		reply.WithTrailing(caps)
		conn.Write(reply)

	case CapReq:
		if !msg.TrailingSet {
			conn.ReplyNumeric(ReplyNeedMoreParams, CmdCap, ErrMissingParams.Error())
			return
		}
		tokens := strings.Fields(msg.Trailing)
		var bits Capability
		allKnown := true
		for _, tok := range tokens {
			bit, ok := ParseCapToken(tok)
			if !ok {
				allKnown = false
				break
			}
			bits |= bit
		}

		reply := NewPooledMessage()
		reply.Source = conn.server.Hostname()
		reply.Command = CmdCap
		reply.Params = []string{conn.nickOrStar()}
		if allKnown {
			conn.Lock()
			conn.caps.Add(bits)
			conn.capsNegotiating = true
			conn.Unlock()
			reply.Params = append(reply.Params, CapAck)
		} else {
			reply.Params = append(reply.Params, CapNak)
		}
		reply.WithTrailing(msg.Trailing)
		conn.Write(reply)

	case CapEnd:
		conn.Lock()
		conn.capsNegotiating = false
		nickSet, userSet := conn.nickSet, conn.userSet
		conn.Unlock()
		if nickSet && userSet {
			runAuthenticationProcedure(conn)
		}

	default:
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdCap, ErrInvalidCapCmd.Error())
	}
}

func handleAuthenticate(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	datum := msg.Trailing
	if datum == "" && len(msg.Params) > 0 {
		datum = msg.Params[0]
	}

	outcome := conn.HandleAuthenticate(datum)

	if outcome.plus {
		reply := NewPooledMessage()
		reply.Source = conn.server.Hostname()
		reply.Command = CmdAuth
		reply.WithTrailing("+")
		conn.Write(reply)
		return
	}

	if outcome.code != 0 {
		conn.ReplyNumeric(outcome.code, outcome.text)
	}

	if outcome.code == ReplySaslSuccess {
		conn.RLock()
		nickSet, userSet, negotiating := conn.nickSet, conn.userSet, conn.capsNegotiating
		conn.RUnlock()
		if nickSet && userSet && !negotiating {
			runAuthenticationProcedure(conn)
		}
	}
}

func handlePass(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdPass, ErrMissingParams.Error())
		return
	}
	conn.Lock()
	if conn.registered {
		conn.Unlock()
		conn.ReplyNumeric(ReplyAlreadyRegistered, ErrUserAlreadySet.Error())
		return
	}
	conn.pendingPass = msg.Params[0]
	conn.Unlock()
}

func handleNick(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	nick := ""
	if len(msg.Params) > 0 {
		nick = msg.Params[0]
	}
	if nick == "" {
		conn.ReplyNumeric(ReplyNoNicknameGiven, ErrNoNickGiven.Error())
		return
	}
	if len(nick) > MaxNickLength {
		conn.ReplyNumeric(ReplyErroneousNickname, nick, "Nickname too long")
		return
	}

	conn.RLock()
	registered := conn.registered
	conn.RUnlock()

	if !registered {
		conn.Lock()
		conn.pendingNick = nick
		conn.nickSet = true
		nickSet, userSet, negotiating := conn.nickSet, conn.userSet, conn.capsNegotiating
		conn.Unlock()
		if nickSet && userSet && !negotiating {
			runAuthenticationProcedure(conn)
		}
		return
	}

	// Already-registered rename (§4.H, §4.E RenameUser).
	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	oldNick := user.Nick()
	if CanonicalName(oldNick) == CanonicalName(nick) {
		user.SetNick(nick)
		return
	}

	if err := conn.server.State.RenameUser(user, oldNick, nick, time.Now().Unix()); err != nil {
		conn.ReplyNumeric(ReplyNicknameInUse, nick, ErrNickInUse.Error())
		return
	}

	renameMsg := NewPooledMessage()
	renameMsg.Source = user.Source()
	user.SetNick(nick)
	renameMsg.Command = CmdNick
	renameMsg.WithTrailing(nick)

	seen := make(map[string]bool)
	for _, chanName := range user.Channels() {
		if seen[chanName] {
			continue
		}
		seen[chanName] = true
		if channel, ok := conn.server.State.LookupChannel(chanName); ok {
			channel.Send(renameMsg, "")
		}
	}
	// Not recycled: fanned out to every shared channel's write queues.
}

func handleUser(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) < 3 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdUser, ErrMissingParams.Error())
		return
	}

	conn.Lock()
	if conn.registered {
		conn.Unlock()
		conn.ReplyNumeric(ReplyAlreadyRegistered, ErrUserAlreadySet.Error())
		return
	}
	conn.pendingUser = msg.Params[0]
	conn.pendingReal = msg.Trailing
	conn.userSet = true
	nickSet, userSet, negotiating := conn.nickSet, conn.userSet, conn.capsNegotiating
	conn.Unlock()

	if nickSet && userSet && !negotiating {
		runAuthenticationProcedure(conn)
	}
}

func handleSetname(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if !msg.TrailingSet {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdSetname, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()

	if user == nil {
		conn.Lock()
		conn.pendingReal = msg.Trailing
		conn.Unlock()
		return
	}

	user.SetRealname(msg.Trailing)
	echo := NewPooledMessage()
	echo.Source = user.Source()
	echo.Command = CmdSetname
	echo.WithTrailing(msg.Trailing)
	conn.Write(echo)
	// Not recycled: owned by writeLoop once enqueued.
}

func handleOper(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) < 2 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdOper, ErrMissingParams.Error())
		return
	}

	username, password := msg.Params[0], msg.Params[1]
	var match *OperatorConfig
	for i := range conn.server.Config.Operators {
		if conn.server.Config.Operators[i].Username == username {
			match = &conn.server.Config.Operators[i]
			break
		}
	}
	if match == nil || !VerifyPassword(password, match.Password) {
		conn.ReplyNumeric(ReplyNoOperHost, ErrNoOperHost.Error())
		return
	}
	if match.Mask != "" {
		conn.RLock()
		source := ""
		if conn.user != nil {
			source = conn.user.Source()
		}
		conn.RUnlock()
		if !MatchMask(match.Mask, source) {
			conn.ReplyNumeric(ReplyNoOperHost, ErrNoOperHost.Error())
			return
		}
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	modes := user.Modes()
	modes.LocalOper = true
	user.SetModes(modes)
	conn.server.State.AdjustOperatorCount(1)
	conn.ReplyNumeric(ReplyYoureOper, "You are now an IRC operator")
}

func handleMonitor(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdMonitor, ErrMissingParams.Error())
		return
	}

	// Stubbed per §4.H: correct numerics, no retained monitor list.
	switch strings.ToUpper(msg.Params[0]) {
	case "C":
	case "L":
		conn.ReplyNumeric(ReplyMonList)
		conn.ReplyNumeric(ReplyEndOfMonList, "End of MONITOR list")
	case "S":
		conn.ReplyNumeric(ReplyEndOfMonList, "End of MONITOR list")
	case "+", "-":
	}
}

// runAuthenticationProcedure implements §4.H's authentication procedure
// once both NICK and USER are set and capability negotiation (if any)
// has ended.
func runAuthenticationProcedure(conn *Conn) {
	conn.RLock()
	if conn.registered {
		conn.RUnlock()
		return
	}
	nick := conn.pendingNick
	username := conn.pendingUser
	realname := conn.pendingReal
	password := conn.pendingPass
	saslOK := conn.saslAuthenticated
	conn.RUnlock()

	if realname == "" {
		realname = username
	}

	cfg := conn.server.Config

	if !saslOK {
		configured := findConfiguredUser(cfg, username)
		if configured != nil {
			if configured.Mask != "" {
				if !MatchMask(configured.Mask, hostOnly(conn.remAddr)) {
					conn.Kill("", ErrUserMaskMismatch.Error())
					return
				}
			}
			if configured.Password != "" && !VerifyPassword(password, configured.Password) {
				conn.ReplyNumeric(ReplyPasswordMismatch, ErrPasswdMismatch.Error())
				conn.Kill("", ErrPasswdMismatch.Error())
				return
			}
		} else if cfg.GlobalPassword != "" {
			if !VerifyPassword(password, cfg.GlobalPassword) {
				conn.ReplyNumeric(ReplyPasswordMismatch, ErrPasswdMismatch.Error())
				conn.Kill("", ErrPasswdMismatch.Error())
				return
			}
		}

		if conn.server.Store != nil {
			record, found, err := conn.server.Store.GetNick(nick)
			if err == nil && found {
				if password == "" {
					conn.ReplyNumeric(ReplyNickRegistered, ErrNickRegistered.Error())
					conn.Kill("", ErrNickRegistered.Error())
					return
				}
				if !VerifyPassword(password, record.PasswordHash) {
					conn.ReplyNumeric(ReplyPasswordMismatch, ErrPasswdMismatch.Error())
					conn.Kill("", ErrPasswdMismatch.Error())
					return
				}
			}
		}
	}

	hostname := hostOnly(conn.remAddr)
	if cfg.DNSLookupEnabled {
		if names, err := resolveHostname(conn.remAddr); err == nil && len(names) > 0 {
			hostname = names[0]
		}
	}

	now := time.Now().Unix()
	user := NewUser(conn, nick, username, realname, hostname, now)

	modes := user.Modes()
	modes.Secure = conn.secure
	modes.Websocket = conn.websocket
	keys := cfg.CloakKeys()
	if keys.K1 != "" || keys.K2 != "" || keys.K3 != "" {
		user.SetCloak(Cloak(keys, hostname))
		modes.Cloaked = true
	}
	user.SetModes(modes)

	if saslOK {
		conn.RLock()
		account := conn.saslAccount
		conn.RUnlock()
		if account != "" {
			user.SetIdentified(account)
		}
	}

	if err := conn.server.State.AddUser(user); err != nil {
		conn.ReplyNumeric(ReplyNicknameInUse, nick, ErrNickInUse.Error())
		return
	}

	conn.Lock()
	conn.user = user
	conn.registered = true
	conn.Unlock()

	conn.ReplyWelcomeBurst()
	conn.ReplyLusers()
	conn.ReplyMOTDBurst()
	conn.ReplyNumeric(ReplyUserModeIs, user.Modes().String())
}

// resolveHostname is a thin seam over net.LookupAddr, kept separate so
// tests can stub it without touching real DNS.
var resolveHostname = func(remAddr string) ([]string, error) {
	return net.LookupAddr(hostOnly(remAddr))
}
