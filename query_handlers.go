/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// registerQueryHandlers wires the §4.K server-query surface plus the
// oper-only administrative commands (KILL, WALLOPS, DIE).
func registerQueryHandlers(r *Router) {
	r.Handle(CmdMotd, handleMotd)
	r.Handle(CmdLusers, handleLusers)
	r.Handle(CmdVersion, handleVersion)
	r.Handle(CmdAdmin, handleAdmin)
	r.Handle(CmdInfo, handleInfo)
	r.Handle(CmdTime, handleTime)
	r.Handle(CmdStats, handleStats)
	r.Handle(CmdLinks, handleLinks)
	r.Handle(CmdHelp, handleHelp)
	r.Handle(CmdWho, handleWho)
	r.Handle(CmdWhois, handleWhois)
	r.Handle(CmdWhowas, handleWhowas)
	r.Handle(CmdUserhost, handleUserhost)
	r.Handle(CmdIson, handleIson)
	r.Handle(CmdAway, handleAway)
	r.Handle(CmdKill, handleKill)
	r.Handle(CmdWallops, handleWallops)
	r.Handle(CmdDie, handleDie)
}

func handleMotd(ctx *MessageContext) {
	ctx.Conn.ReplyMOTDBurst()
}

func handleLusers(ctx *MessageContext) {
	ctx.Conn.ReplyLusers()
}

func handleVersion(ctx *MessageContext) {
	conn := ctx.Conn
	conn.ReplyNumeric(ReplyVersion, "go-ircd-1.0", conn.server.Hostname(), "")
}

func handleAdmin(ctx *MessageContext) {
	conn := ctx.Conn
	cfg := conn.server.Config
	conn.ReplyNumeric(ReplyAdminMe, conn.server.Hostname(), "Administrative info about "+conn.server.Hostname())
	conn.ReplyNumeric(ReplyAdminLoc1, valueOr(cfg.AdminLocation1, "Unknown location"))
	conn.ReplyNumeric(ReplyAdminLoc2, valueOr(cfg.AdminLocation2, "Unknown organization"))
	conn.ReplyNumeric(ReplyAdminEmail, valueOr(cfg.AdminEmail, "No contact email configured"))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func handleInfo(ctx *MessageContext) {
	conn := ctx.Conn
	lines := []string{
		"go-ircd-1.0",
		"An RFC 1459/2812-family IRC daemon with IRCv3 capability negotiation, SASL, and services.",
	}
	for _, line := range lines {
		conn.ReplyNumeric(ReplyInfo, line)
	}
	conn.ReplyNumeric(ReplyEndOfInfo, "End of INFO list")
}

func handleTime(ctx *MessageContext) {
	conn := ctx.Conn
	conn.ReplyNumeric(ReplyTime, conn.server.Hostname(), time.Now().UTC().Format(time.RFC1123))
}

func handleStats(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	letter := ""
	if len(msg.Params) > 0 {
		letter = msg.Params[0]
	}

	switch letter {
	case "m", "M":
		for _, c := range CommandCounts() {
			conn.ReplyNumeric(ReplyStatsCommands, c.Command, strconv.FormatUint(c.Count, 10))
		}
	}
	conn.ReplyNumeric(ReplyEndOfStats, letter, "End of STATS report")
}

func handleLinks(ctx *MessageContext) {
	conn := ctx.Conn
	host := conn.server.Hostname()
	conn.ReplyNumeric(ReplyLinks, host, host, "0 "+conn.server.Network())
	conn.ReplyNumeric(ReplyEndOfLinks, "*", "End of LINKS list")
}

func handleHelp(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	reply := func(text string) {
		out := NewPooledMessage()
		out.Source = conn.server.Hostname()
		out.Command = CmdNotice
		out.Params = []string{conn.nickOrStar()}
		out.WithTrailing(text)
		conn.Write(out)
		// Not recycled: owned by writeLoop once enqueued.
	}

	if len(msg.Params) == 0 {
		reply("Available commands:")
		for cmd := range helpTopics {
			reply(cmd)
		}
		return
	}

	topic := strings.ToUpper(msg.Params[0])
	if usage, ok := helpTopics[topic]; ok {
		reply(usage)
		return
	}
	reply("No help available for " + topic)
}

func handleWho(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	mask := "*"
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		mask = msg.Params[0]
	}

	conn.RLock()
	self := conn.user
	conn.RUnlock()

	if isChannelName(mask) {
		if channel, ok := conn.server.State.LookupChannel(mask); ok {
			for _, nick := range channel.Names() {
				nick = strings.TrimLeft(nick, "~&@%+")
				if user, ok := conn.server.State.LookupUser(nick); ok {
					writeWhoLine(conn, channel.Name(), user)
				}
			}
		}
		conn.ReplyNumeric(ReplyEndOfWho, mask, "End of WHO list")
		return
	}

	for _, user := range conn.server.State.AllUsers() {
		if !MatchMask(mask, user.Nick()) && !MatchMask(mask, user.Source()) && !MatchMask(mask, user.Realname()) {
			continue
		}
		if user.Modes().Invisible && !shareChannel(self, user) {
			continue
		}
		writeWhoLine(conn, "*", user)
	}
	conn.ReplyNumeric(ReplyEndOfWho, mask, "End of WHO list")
}

func shareChannel(a, b *User) bool {
	if a == nil || b == nil {
		return false
	}
	for _, c := range a.Channels() {
		if b.InChannel(c) {
			return true
		}
	}
	return false
}

func writeWhoLine(conn *Conn, channelName string, user *User) {
	flags := "H"
	if user.IsAway() {
		flags = "G"
	}
	if user.Modes().IsLocalOper() {
		flags += "*"
	}
	conn.ReplyNumeric(ReplyWho, channelName, user.Username(), user.Hostname(), conn.server.Hostname(), user.Nick(), flags, "0 "+user.Realname())
}

func handleWhois(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdWhois, ErrMissingParams.Error())
		return
	}

	nick := msg.Params[len(msg.Params)-1]
	user, ok := conn.server.State.LookupUser(nick)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchNick, nick, ErrNoSuchNick.Error())
		conn.ReplyNumeric(ReplyEndOfWhois, nick, "End of WHOIS list")
		return
	}

	modes := user.Modes()

	conn.ReplyNumeric(ReplyWhoisUser, user.Nick(), user.Username(), user.Hostname(), "*", user.Realname())

	var channels []string
	for _, cname := range user.Channels() {
		if channel, ok := conn.server.State.LookupChannel(cname); ok {
			if member, isMember := channel.Member(CanonicalName(user.Nick())); isMember {
				name := channel.Name()
				if p := member.Role().Prefix(); p != 0 {
					name = string(p) + name
				}
				channels = append(channels, name)
			}
		}
	}
	if len(channels) > 0 {
		conn.ReplyNumeric(ReplyWhoisChannels, user.Nick(), strings.Join(channels, " "))
	}

	conn.ReplyNumeric(ReplyWhoisServer, user.Nick(), conn.server.Hostname(), conn.server.Network())

	if user.IsAway() {
		conn.ReplyNumeric(ReplyAway, user.Nick(), user.Away())
	}

	if modes.IsLocalOper() {
		conn.ReplyNumeric(ReplyWhoisOperator, user.Nick(), "is an IRC operator")
	}

	if modes.Registered && user.Identified() {
		conn.ReplyNumeric(ReplyWhoisRegNick, user.Nick(), "is logged in as "+user.Account())
	}

	now := time.Now().Unix()
	idle := now - user.LastActivity()
	if idle < 0 {
		idle = 0
	}
	conn.ReplyNumeric(ReplyWhoisIdle, user.Nick(), strconv.FormatInt(idle, 10), strconv.FormatInt(user.Signon(), 10), "seconds idle, signon time")

	if modes.Secure {
		conn.ReplyNumeric(ReplyWhoisModes, user.Nick(), "is using a secure connection")
	}

	conn.ReplyNumeric(ReplyEndOfWhois, user.Nick(), "End of WHOIS list")
}

func handleWhowas(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdWhowas, ErrMissingParams.Error())
		return
	}

	nick := msg.Params[0]
	count := 0
	if len(msg.Params) > 1 {
		count, _ = strconv.Atoi(msg.Params[1])
	}

	entries := conn.server.State.NickHistory(CanonicalName(nick))
	if len(entries) == 0 {
		conn.ReplyNumeric(ReplyWasNoSuchNick, nick, ErrNoSuchNick.Error())
		conn.ReplyNumeric(ReplyEndOfWhoWas, nick, "End of WHOWAS")
		return
	}

	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}

	for _, e := range entries {
		conn.ReplyNumeric(ReplyWhoWasUser, nick, e.Username, e.Cloak, "*", e.Realname)
	}
	conn.ReplyNumeric(ReplyEndOfWhoWas, nick, "End of WHOWAS")
}

func handleUserhost(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	var entries []string
	for _, nick := range msg.Params {
		user, ok := conn.server.State.LookupUser(nick)
		if !ok {
			continue
		}
		entry := user.Nick()
		if user.Modes().IsLocalOper() {
			entry += "*"
		}
		entry += "="
		if user.IsAway() {
			entry += "-"
		} else {
			entry += "+"
		}
		entry += "~" + user.Username() + "@" + user.Hostname()
		entries = append(entries, entry)
	}

	conn.ReplyUserhostBurst(entries)
}

func handleIson(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	var online []string
	for _, nick := range msg.Params {
		if user, ok := conn.server.State.LookupUser(nick); ok {
			online = append(online, user.Nick())
		}
	}
	conn.ReplyNumeric(ReplyIson, strings.Join(online, " "))
}

func handleAway(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	if !msg.TrailingSet || msg.Trailing == "" {
		user.SetAway("")
		conn.ReplyNumeric(ReplyUnAway, "You are no longer marked as being away")
		return
	}

	user.SetAway(msg.Trailing)
	conn.ReplyNumeric(ReplyNowAway, "You have been marked as being away")
}

func handleKill(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdKill, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil || !user.Modes().IsLocalOper() {
		conn.ReplyNumeric(ReplyNoPrivileges, ErrInsuffPerms.Error())
		return
	}

	targetNick := msg.Params[0]
	reason := "No reason given"
	if msg.TrailingSet {
		reason = msg.Trailing
	}

	target, ok := conn.server.State.LookupUser(targetNick)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchNick, targetNick, ErrNoSuchNick.Error())
		return
	}

	if targetConn := target.Conn(); targetConn != nil {
		targetConn.Kill(user.Nick(), reason)
	}
}

func handleWallops(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if !msg.TrailingSet {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdWallops, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil || !user.Modes().IsLocalOper() {
		conn.ReplyNumeric(ReplyNoPrivileges, ErrInsuffPerms.Error())
		return
	}

	out := NewPooledMessage()
	out.Source = user.Source()
	out.Command = CmdWallops
	out.WithTrailing(msg.Trailing)
	conn.server.State.Wallops(out)
	// Not recycled: fanned out to every wallops-enrolled connection's
	// write queue.
}

func handleDie(ctx *MessageContext) {
	conn := ctx.Conn

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil || !user.Modes().IsLocalOper() {
		conn.ReplyNumeric(ReplyNoPrivileges, ErrInsuffPerms.Error())
		return
	}

	for _, u := range conn.server.State.AllUsers() {
		if c := u.Conn(); c != nil {
			c.Kill(user.Nick(), "Server shutting down")
		}
	}

	os.Exit(0)
}
