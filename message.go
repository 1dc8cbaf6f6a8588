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
	"bytes"
	"strconv"

	"github.com/go-ircd/ircd/shared/itempool"
)

// Grammar (§4.B, informal):
//
//	line   := [':' source SP] command (SP param)* [SP ':' trailing]
//	source := token not containing SP
//	param  := token not starting with ':' and not containing SP
const (
	space = " "
	crlf  = "\r\n"
	colon = ":"
)

// Message is a parsed or outbound IRC line. Params holds every
// space-separated middle parameter; when TrailingSet is true, Trailing
// is rendered with a leading ':' as the final parameter.
type Message struct {
	Source      string
	Command     string
	Code        uint16 // numeric reply code; rendered instead of Command when non-zero
	Params      []string
	Trailing    string
	TrailingSet bool
}

// Scrub clears the message so it is safe to recycle via msgPool.
func (m *Message) Scrub() {
	m.Source = ""
	m.Command = ""
	m.Code = 0
	m.Params = m.Params[:0]
	m.Trailing = ""
	m.TrailingSet = false
}

// verb returns the token to render: the numeric code zero-padded to
// three digits if set, otherwise the textual command.
func (m *Message) verb() string {
	if m.Code != 0 {
		s := strconv.Itoa(int(m.Code))
		for len(s) < 3 {
			s = "0" + s
		}
		return s
	}
	return m.Command
}

// RenderBuffer writes the wire form of the message, CRLF-terminated,
// into buf. Params beyond MaxMsgParams are truncated.
func (m *Message) RenderBuffer(buf *bytes.Buffer) {
	if m.Source != "" {
		buf.WriteString(colon)
		buf.WriteString(m.Source)
		buf.WriteString(space)
	}

	buf.WriteString(m.verb())

	params := m.Params
	if len(params) > MaxMsgParams {
		params = params[:MaxMsgParams]
	}
	for _, p := range params {
		buf.WriteString(space)
		buf.WriteString(p)
	}

	if m.TrailingSet {
		buf.WriteString(space)
		buf.WriteString(colon)
		buf.WriteString(m.Trailing)
	}

	buf.WriteString(crlf)
}

// Render returns the wire form as a string.
func (m *Message) Render() string {
	var buf bytes.Buffer
	m.RenderBuffer(&buf)
	return buf.String()
}

// WithTrailing sets the trailing parameter and marks it for rendering;
// convenience for handlers building replies fluently.
func (m *Message) WithTrailing(text string) *Message {
	m.Trailing = text
	m.TrailingSet = true
	return m
}

// MessagePoolMax bounds the recycle queue depth.
const MessagePoolMax = 1000

// msgPool recycles Message values to cut per-line allocation under load,
// grounded on the teacher's shared/itempool pooling idiom.
var msgPool = itempool.New[*Message](MessagePoolMax, func() *Message { return &Message{} })

// NewPooledMessage fetches a scrubbed Message from msgPool.
func NewPooledMessage() *Message {
	return msgPool.New()
}

// RecycleMessage returns m to msgPool after scrubbing it.
//
// Only call this for a Message whose entire lifetime is owned by the
// caller: an inbound message recycled by readLoop once Dispatch returns,
// or an outbound message rendered synchronously via writeNow outside the
// write queue (e.g. sendPing, the ERROR line on kill). A Message handed
// to Conn.Write is enqueued on conn.writeQueue and rendered later by
// writeLoop, and one handed to Channel.Send or GlobalState.Wallops is
// enqueued on several connections' queues at once — in both cases no
// single caller can safely recycle it, so those call sites let it be
// reclaimed by the garbage collector instead.
func RecycleMessage(m *Message) {
	msgPool.Recycle(m)
}
