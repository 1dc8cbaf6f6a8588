/*
   Copyright (c) 2020, btnmasher
   All rights reserved.

   Redistribution and use in source and binary forms, with or without modification, are permitted provided that
   the following conditions are met:

   1. Redistributions of source code must retain the above copyright notice, this list of conditions and the
      following disclaimer.

   2. Redistributions in binary form must reproduce the above copyright notice, this list of conditions and
      the following disclaimer in the documentation and/or other materials provided with the distribution.

   3. Neither the name of the copyright holder nor the names of its contributors may be used to endorse or
      promote products derived from this software without specific prior written permission.

   THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED
   WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A
   PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
   ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED
   TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
   HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
   NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
   POSSIBILITY OF SUCH DAMAGE.
*/

package ircd

import (
	"github.com/go-ircd/ircd/shared/stringutils"
)

// nickOrStar returns the connection's current nick, or "*" before
// registration completes (standard numeric-reply placeholder).
func (conn *Conn) nickOrStar() string {
	conn.RLock()
	user := conn.user
	conn.RUnlock()
	if user == nil {
		return "*"
	}
	if nick := user.Nick(); nick != "" {
		return nick
	}
	return "*"
}

// ReplyNumeric sends a numeric reply addressed to this connection, with
// params following the nick and the final arg rendered as trailing text.
//
// The built Message is not recycled here: conn.Write only enqueues it on
// the connection's write queue, so ownership passes to writeLoop, which
// renders it whenever it's dequeued. Returning it to the pool on this
// side would race writeLoop's still-pending read of it.
func (conn *Conn) ReplyNumeric(code uint16, paramsAndText ...string) {
	msg := conn.newReplyMessage(code)

	if len(paramsAndText) == 0 {
		msg.Params = []string{conn.nickOrStar()}
		conn.Write(msg)
		return
	}

	text := paramsAndText[len(paramsAndText)-1]
	params := append([]string{conn.nickOrStar()}, paramsAndText[:len(paramsAndText)-1]...)
	msg.Params = params
	msg.WithTrailing(text)
	conn.Write(msg)
}

// replyError maps an Error value to its numeric and sends it.
func (conn *Conn) replyError(code uint16, err error, params ...string) {
	conn.ReplyNumeric(code, append(params, err.Error())...)
}

// ReplyWelcomeBurst sends the 001..004 connection-registration burst,
// followed by the 005 ISUPPORT lines.
func (conn *Conn) ReplyWelcomeBurst() {
	nick := conn.nickOrStar()
	conn.ReplyNumeric(ReplyWelcome, "Welcome to "+conn.server.Network()+", "+nick+"!~"+conn.pendingUser+"@"+conn.remAddr)
	conn.ReplyNumeric(ReplyYourHost, "Your host is "+conn.server.Hostname()+", running version go-ircd-1.0")
	conn.ReplyNumeric(ReplyCreated, "This server was created at startup")
	conn.ReplyNumeric(ReplyMyInfo, conn.server.Hostname(), "go-ircd-1.0", "OiorwWz", "IabehiklmnopqstvB")

	support := conn.server.ISupport()
	for _, chunk := range stringutils.ChunkJoinStrings(MaxLineLength-100, " ", support...) {
		conn.ReplyNumeric(ReplyISupport, chunk, "are supported by this server")
	}
}

// ReplyLusers sends the LUSERS numeric burst (§4.K).
func (conn *Conn) ReplyLusers() {
	state := conn.server.State
	conn.ReplyNumeric(ReplyLuserClient, "There are "+itoa(state.UserCount())+" users and "+itoa(state.InvisibleCount())+" invisible on 1 server")
	conn.ReplyNumeric(ReplyLuserOp, itoa(state.OperatorCount()), "operator(s) online")
	conn.ReplyNumeric(ReplyLuserUnknown, "0", "unknown connection(s)")
	conn.ReplyNumeric(ReplyLuserChannels, itoa(state.ChannelCount()), "channels formed")
	conn.ReplyNumeric(ReplyLuserMe, "I have "+itoa(state.UserCount())+" clients and 1 server")
}

// ReplyMOTDBurst sends the MOTD numeric sequence.
func (conn *Conn) ReplyMOTDBurst() {
	lines := conn.server.MOTD()
	conn.ReplyNumeric(ReplyMOTDStart, "- "+conn.server.Hostname()+" Message of the day -")
	for _, line := range lines {
		conn.ReplyNumeric(ReplyMOTD, "- "+line)
	}
	conn.ReplyNumeric(ReplyEndOfMOTD, "End of MOTD command")
}

// ReplyChannelNames sends the paginated NAMES burst for channel.
func (conn *Conn) ReplyChannelNames(channel *Channel) {
	names := channel.Names()
	nick := conn.nickOrStar()
	cname := channel.Name()

	overhead := len(nick) + len(cname) + 10
	for _, chunk := range stringutils.ChunkJoinStrings(MaxLineLength-overhead, " ", names...) {
		conn.ReplyNumeric(ReplyNames, "=", cname, chunk)
	}
	conn.ReplyNumeric(ReplyEndOfNames, cname, "End of NAMES list")
}

// ReplyUserhostBurst sends USERHOST in chunks of UserhostChunkSize.
func (conn *Conn) ReplyUserhostBurst(entries []string) {
	for i := 0; i < len(entries); i += UserhostChunkSize {
		end := i + UserhostChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		for _, chunk := range stringutils.ChunkJoinStrings(MaxLineLength-64, " ", entries[i:end]...) {
			conn.ReplyNumeric(ReplyUserHost, chunk)
		}
	}
}

// itoa avoids importing strconv in every call site above.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
