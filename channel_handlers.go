/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"strconv"
	"strings"
	"time"
)

// registerChannelHandlers wires JOIN, PART, TOPIC, NAMES, LIST, INVITE,
// KICK, and MODE (§4.I).
func registerChannelHandlers(r *Router) {
	r.Handle(CmdJoin, handleJoin)
	r.Handle(CmdPart, handlePart)
	r.Handle(CmdTopic, handleTopic)
	r.Handle(CmdNames, handleNames)
	r.Handle(CmdList, handleList)
	r.Handle(CmdInvite, handleInvite)
	r.Handle(CmdKick, handleKick)
	r.Handle(CmdMode, handleChannelMode)
}

func isChannelName(name string) bool {
	if len(name) == 0 {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	return !strings.ContainsAny(name, ",: ")
}

func handleJoin(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdJoin, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	var key string
	if len(msg.Params) > 1 {
		key = strings.Split(msg.Params[1], ",")[0]
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		joinOneChannel(conn, user, name, key)
	}
}

func joinOneChannel(conn *Conn, user *User, name, key string) {
	if !isChannelName(name) {
		conn.ReplyNumeric(ReplyNoSuchChannel, name, ErrNoSuchChan.Error())
		return
	}

	if user.ChannelCount() >= MaxJoinedChans {
		conn.ReplyNumeric(ReplyTooManyChannels, name, "You have joined too many channels")
		return
	}

	now := time.Now().Unix()
	channel, created := conn.server.State.GetOrCreateChannel(name, now)
	canonicalNick := CanonicalName(user.Nick())

	if !created {
		modes := channel.Modes()
		if modes.HasKey && modes.Key != key {
			conn.ReplyNumeric(ReplyBadChannelKey, name, "Cannot join channel (+k)")
			return
		}
		if modes.InviteOnly && !user.IsInvited(CanonicalName(name)) && !channel.IsInviteExempt(user.Source()) {
			conn.ReplyNumeric(ReplyInviteOnlyChan, name, "Cannot join channel (+i)")
			return
		}
		if channel.Banned(user.Source()) {
			conn.ReplyNumeric(ReplyBannedFromChan, name, "Cannot join channel (+b)")
			return
		}
		if modes.HasLimit && channel.MemberCount() >= modes.ClientLimit {
			conn.ReplyNumeric(ReplyChannelIsFull, name, "Cannot join channel (+l)")
			return
		}
		if _, already := channel.Member(canonicalNick); already {
			return
		}
	}

	channel.Join(user, canonicalNick, false)
	user.addChannel(CanonicalName(name))

	if def := findChannelDefault(conn.server.Config, name); def != nil {
		applyChannelDefault(channel, def)
	}

	joinMsg := NewPooledMessage()
	joinMsg.Source = user.Source()
	joinMsg.Command = CmdJoin
	joinMsg.Params = []string{channel.Name()}
	channel.Send(joinMsg, "")
	// Not recycled: fanned out to every member's write queue.

	text, setter, at := channel.Topic()
	if text == "" {
		conn.ReplyNumeric(ReplyNoTopic, channel.Name(), "No topic is set")
	} else {
		conn.ReplyNumeric(ReplyChanTopic, channel.Name(), text)
		conn.ReplyNumeric(ReplyTopicWhoTime, channel.Name(), setter, strconv.FormatInt(at, 10))
	}
	conn.ReplyChannelNames(channel)
}

func findChannelDefault(cfg *Config, name string) *ChannelDefault {
	for i := range cfg.Channels {
		if CanonicalName(cfg.Channels[i].Name) == CanonicalName(name) {
			return &cfg.Channels[i]
		}
	}
	return nil
}

func applyChannelDefault(channel *Channel, def *ChannelDefault) {
	if def.Topic != "" {
		text, _, _ := channel.Topic()
		if text == "" {
			channel.SetTopic(def.Topic, channel.Name(), time.Now().Unix())
		}
	}
	if def.Modes != "" {
		channel.ApplyModes(def.Modes, nil)
	}

	grant := func(nicks []string, letter byte) {
		for _, nick := range nicks {
			if member, ok := channel.Member(CanonicalName(nick)); ok {
				setRoleFlag(member, letter, true)
			}
		}
	}
	grant(def.Founders, 'q')
	grant(def.Protecteds, 'a')
	grant(def.Operators, 'o')
	grant(def.HalfOps, 'h')
	grant(def.Voices, 'v')
}

func handlePart(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdPart, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	reason := "Leaving"
	if msg.TrailingSet {
		reason = msg.Trailing
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		channel, ok := conn.server.State.LookupChannel(name)
		if !ok {
			conn.ReplyNumeric(ReplyNoSuchChannel, name, ErrNoSuchChan.Error())
			continue
		}
		if _, member := channel.Member(CanonicalName(user.Nick())); !member {
			conn.ReplyNumeric(ReplyNotOnChannel, name, "You're not on that channel")
			continue
		}

		partMsg := NewPooledMessage()
		partMsg.Source = user.Source()
		partMsg.Command = CmdPart
		partMsg.Params = []string{channel.Name()}
		partMsg.WithTrailing(reason)
		channel.Send(partMsg, "")
		// Not recycled: fanned out to every member's write queue.

		conn.server.State.RemoveUserFromChannel(user, channel)
	}
}

func handleTopic(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdTopic, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	name := msg.Params[0]
	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchChannel, name, ErrNoSuchChan.Error())
		return
	}

	member, isMember := channel.Member(CanonicalName(user.Nick()))
	if !isMember {
		conn.ReplyNumeric(ReplyNotOnChannel, name, "You're not on that channel")
		return
	}

	if !msg.TrailingSet {
		text, setter, at := channel.Topic()
		if text == "" {
			conn.ReplyNumeric(ReplyNoTopic, channel.Name(), "No topic is set")
			return
		}
		conn.ReplyNumeric(ReplyChanTopic, channel.Name(), text)
		conn.ReplyNumeric(ReplyTopicWhoTime, channel.Name(), setter, strconv.FormatInt(at, 10))
		return
	}

	if channel.Modes().ProtectedTopic && !member.AtLeast(RoleHalfOp) {
		conn.ReplyNumeric(ReplyChanOpPrivsNeeded, name, ErrInsuffPerms.Error())
		return
	}

	channel.SetTopic(msg.Trailing, user.Nick(), time.Now().Unix())

	topicMsg := NewPooledMessage()
	topicMsg.Source = user.Source()
	topicMsg.Command = CmdTopic
	topicMsg.Params = []string{channel.Name()}
	topicMsg.WithTrailing(msg.Trailing)
	channel.Send(topicMsg, "")
	// Not recycled: fanned out to every member's write queue.
}

func handleNames(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		for _, channel := range conn.server.State.AllChannels() {
			if channel.Modes().Secret {
				continue
			}
			conn.ReplyChannelNames(channel)
		}
		return
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		channel, ok := conn.server.State.LookupChannel(name)
		if !ok {
			conn.ReplyNumeric(ReplyEndOfNames, name, "End of NAMES list")
			continue
		}
		conn.ReplyChannelNames(channel)
	}
}

func handleList(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	conn.ReplyNumeric(ReplyListStart, "Channel", "Users Name")

	var want map[string]bool
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		want = make(map[string]bool)
		for _, n := range strings.Split(msg.Params[0], ",") {
			want[CanonicalName(n)] = true
		}
	}

	for _, channel := range conn.server.State.AllChannels() {
		if channel.Modes().Secret {
			continue
		}
		if want != nil && !want[CanonicalName(channel.Name())] {
			continue
		}
		text, _, _ := channel.Topic()
		conn.ReplyNumeric(ReplyList, channel.Name(), strconv.Itoa(channel.MemberCount()), text)
	}

	conn.ReplyNumeric(ReplyEndOfList, "End of LIST")
}

func handleInvite(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) < 2 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdInvite, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	targetNick, chanName := msg.Params[0], msg.Params[1]

	channel, ok := conn.server.State.LookupChannel(chanName)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchChannel, chanName, ErrNoSuchChan.Error())
		return
	}

	member, isMember := channel.Member(CanonicalName(user.Nick()))
	if !isMember {
		conn.ReplyNumeric(ReplyNotOnChannel, chanName, "You're not on that channel")
		return
	}
	if channel.Modes().InviteOnly && !member.AtLeast(RoleOperator) {
		conn.ReplyNumeric(ReplyChanOpPrivsNeeded, chanName, ErrInsuffPerms.Error())
		return
	}

	target, ok := conn.server.State.LookupUser(targetNick)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchNick, targetNick, ErrNoSuchNick.Error())
		return
	}
	target.Invite(CanonicalName(chanName))

	conn.ReplyNumeric(ReplyInviting, targetNick, chanName)

	if targetConn := target.Conn(); targetConn != nil {
		inviteMsg := NewPooledMessage()
		inviteMsg.Source = user.Source()
		inviteMsg.Command = CmdInvite
		inviteMsg.Params = []string{target.Nick()}
		inviteMsg.WithTrailing(channel.Name())
		targetConn.Write(inviteMsg)
		// Not recycled: owned by targetConn's writeLoop once enqueued.
	}
}

func handleKick(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) < 2 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdKick, ErrMissingParams.Error())
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	chanName, targetNick := msg.Params[0], msg.Params[1]
	reason := targetNick
	if msg.TrailingSet {
		reason = msg.Trailing
	}

	channel, ok := conn.server.State.LookupChannel(chanName)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchChannel, chanName, ErrNoSuchChan.Error())
		return
	}

	member, isMember := channel.Member(CanonicalName(user.Nick()))
	if !isMember || !member.AtLeast(RoleHalfOp) {
		conn.ReplyNumeric(ReplyChanOpPrivsNeeded, chanName, ErrInsuffPerms.Error())
		return
	}

	target, ok := conn.server.State.LookupUser(targetNick)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchNick, targetNick, ErrNoSuchNick.Error())
		return
	}
	if _, targetIsMember := channel.Member(CanonicalName(target.Nick())); !targetIsMember {
		conn.ReplyNumeric(ReplyNoSuchNick, targetNick, "They aren't on that channel")
		return
	}

	kickMsg := NewPooledMessage()
	kickMsg.Source = user.Source()
	kickMsg.Command = CmdKick
	kickMsg.Params = []string{channel.Name(), target.Nick()}
	kickMsg.WithTrailing(reason)
	channel.Send(kickMsg, "")
	// Not recycled: fanned out to every member's write queue.

	conn.server.State.RemoveUserFromChannel(target, channel)
}

func handleChannelMode(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		conn.ReplyNumeric(ReplyNeedMoreParams, CmdMode, ErrMissingParams.Error())
		return
	}

	name := msg.Params[0]
	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		conn.ReplyNumeric(ReplyNoSuchChannel, name, ErrNoSuchChan.Error())
		return
	}

	if len(msg.Params) == 1 {
		modes := channel.Modes()
		current := NewPooledMessage()
		current.Source = conn.server.Hostname()
		current.Command = CmdMode
		current.Params = []string{channel.Name(), modes.String()}
		conn.Write(current)
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()

	if user != nil {
		if member, isMember := channel.Member(CanonicalName(user.Nick())); !isMember || !member.AtLeast(RoleHalfOp) {
			conn.ReplyNumeric(ReplyChanOpPrivsNeeded, name, ErrInsuffPerms.Error())
			return
		}
	}

	changes, args, err := channel.ApplyModes(msg.Params[1], msg.Params[2:])
	if err != nil {
		switch err {
		case ErrMissingParams:
			conn.ReplyNumeric(ReplyNeedMoreParams, CmdMode, err.Error())
		case ErrInvalidModeArg:
			conn.ReplyNumeric(ReplyInvalidModeParam, name, msg.Params[1], err.Error())
		case ErrNoSuchNick:
			conn.ReplyNumeric(ReplyNoSuchNick, err.Error())
		default:
			conn.ReplyNumeric(ReplyUnknownMode, err.Error())
		}
		return
	}
	if changes == "" {
		return
	}

	echo := NewPooledMessage()
	if user != nil {
		echo.Source = user.Source()
	} else {
		echo.Source = conn.server.Hostname()
	}
	echo.Command = CmdMode
	echo.Params = append([]string{channel.Name(), changes}, args...)
	channel.Send(echo, "")
	// Not recycled: fanned out to every member's write queue.
}
