/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "strings"

// registerServiceHandlers wires NICKSERV/NS and CHANSERV/CS (§4.L).
func registerServiceHandlers(r *Router) {
	r.Handle(CmdNickserv, handleNickserv)
	r.Handle(CmdNs, handleNickserv)
	r.Handle(CmdChanserv, handleChanserv)
	r.Handle(CmdCs, handleChanserv)
}

// serviceNotice writes text addressed from source (NickServ/ChanServ) to
// the requesting connection as a NOTICE, per §4.L "replies are always
// source=NickServ/ChanServ with NOTICE <client> :<text>".
func serviceNotice(conn *Conn, source, text string) {
	out := NewPooledMessage()
	out.Source = source
	out.Command = CmdNotice
	out.Params = []string{conn.nickOrStar()}
	out.WithTrailing(text)
	conn.Write(out)
	// Not recycled: owned by writeLoop once enqueued.
}

func handleNickserv(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		serviceNotice(conn, "NickServ", "Insufficient parameters. "+helpTopics[CmdNickserv])
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	sub := strings.ToUpper(msg.Params[0])
	args := msg.Params[1:]
	if msg.TrailingSet {
		args = append(append([]string{}, args...), msg.Trailing)
	}

	dispatchNickserv(conn, user, sub, args)
}

func handleChanserv(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg
	if len(msg.Params) == 0 {
		serviceNotice(conn, "ChanServ", "Insufficient parameters. "+helpTopics[CmdChanserv])
		return
	}

	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return
	}

	sub := strings.ToUpper(msg.Params[0])
	args := msg.Params[1:]
	if msg.TrailingSet {
		args = append(append([]string{}, args...), msg.Trailing)
	}

	dispatchChanserv(conn, user, sub, args)
}
