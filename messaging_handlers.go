/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"strings"
	"time"
)

// registerMessagingHandlers wires PRIVMSG and NOTICE (§4.J).
func registerMessagingHandlers(r *Router) {
	r.Handle(CmdPrivMsg, handlePrivmsg)
	r.Handle(CmdNotice, handleNotice)
}

func handlePrivmsg(ctx *MessageContext) {
	dispatchMessage(ctx, CmdPrivMsg, true)
}

func handleNotice(ctx *MessageContext) {
	dispatchMessage(ctx, CmdNotice, false)
}

// channelPrefixes is the §3 ordered set of role-subset sigils a target
// may be prefixed with, from lowest to highest role required.
var channelPrefixes = map[byte]ChannelRole{
	'+': RoleVoice,
	'%': RoleHalfOp,
	'@': RoleOperator,
	'&': RoleProtected,
	'~': RoleFounder,
}

// dispatchMessage implements §4.J. reportErrors is false for NOTICE,
// which never replies with an error numeric or RplAway.
func dispatchMessage(ctx *MessageContext, command string, reportErrors bool) {
	conn, msg := ctx.Conn, ctx.Msg

	if len(msg.Params) == 0 {
		if reportErrors {
			conn.ReplyNumeric(ReplyNeedMoreParams, command, ErrMissingParams.Error())
		}
		return
	}
	if !msg.TrailingSet {
		if reportErrors {
			conn.ReplyNumeric(ReplyNeedMoreParams, command, ErrMissingParams.Error())
		}
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	seen := make(map[string]bool)
	for _, target := range strings.Split(msg.Params[0], ",") {
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		deliverTo(conn, user, target, msg.Trailing, command, reportErrors)
	}

	user.Touch(time.Now().Unix())
}

func deliverTo(conn *Conn, user *User, target, text, command string, reportErrors bool) {
	minRole := RoleNone
	name := target
	if len(name) > 0 {
		if role, ok := channelPrefixes[name[0]]; ok {
			minRole = role
			name = name[1:]
		}
	}

	if isChannelName(name) {
		deliverToChannel(conn, user, name, target, minRole, text, command, reportErrors)
		return
	}

	deliverToUser(conn, user, target, text, command, reportErrors)
}

func deliverToChannel(conn *Conn, user *User, name, target string, minRole ChannelRole, text, command string, reportErrors bool) {
	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		if reportErrors {
			conn.ReplyNumeric(ReplyNoSuchChannel, name, ErrNoSuchChan.Error())
		}
		return
	}

	canonicalNick := CanonicalName(user.Nick())
	member, isMember := channel.Member(canonicalNick)
	modes := channel.Modes()

	if !isMember && (modes.NoExternalMessages || modes.Secret) {
		if reportErrors {
			conn.ReplyNumeric(ReplyCannotSendToChan, name, ErrCannotSendToChan.Error())
		}
		return
	}
	if channel.Banned(user.Source()) {
		if reportErrors {
			conn.ReplyNumeric(ReplyCannotSendToChan, name, ErrCannotSendToChan.Error())
		}
		return
	}
	if modes.Moderated && (!isMember || !member.AtLeast(RoleVoice)) {
		if reportErrors {
			conn.ReplyNumeric(ReplyCannotSendToChan, name, ErrCannotSendToChan.Error())
		}
		return
	}

	out := NewPooledMessage()
	out.Source = user.Source()
	out.Command = command
	out.Params = []string{target}
	out.WithTrailing(text)

	if minRole == RoleNone {
		channel.Send(out, canonicalNick)
	} else {
		channel.SendToMinRole(out, minRole, canonicalNick)
	}
	// Not recycled: fanned out to every matching member's write queue.
}

func deliverToUser(conn *Conn, user *User, targetNick, text, command string, reportErrors bool) {
	target, ok := conn.server.State.LookupUser(targetNick)
	if !ok {
		if reportErrors {
			conn.ReplyNumeric(ReplyNoSuchNick, targetNick, ErrNoSuchNick.Error())
		}
		return
	}

	targetConn := target.Conn()
	if targetConn != nil {
		out := NewPooledMessage()
		out.Source = user.Source()
		out.Command = command
		out.Params = []string{targetNick}
		out.WithTrailing(text)
		targetConn.Write(out)
		// Not recycled: owned by targetConn's writeLoop once enqueued.
	}

	if reportErrors && command == CmdPrivMsg && target.IsAway() {
		conn.ReplyNumeric(ReplyAway, targetNick, target.Away())
	}
}
