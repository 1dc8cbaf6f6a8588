/*
   Copyright (c) 2023, btnmasher
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

import "strings"

// Parse tokenises a single line per the grammar in §4.B. An empty line
// (after trimming) returns (nil, nil): silently ignored, not an error.
// Handlers never re-parse text; they consume the returned Message.
func Parse(line string) (*Message, error) {
	if len(line) > MaxLineLength {
		return nil, ErrDataTooLong
	}

	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	msg := NewPooledMessage()

	if line[0] == ':' {
		sp := strings.IndexByte(line, ' ')
		if sp == -1 {
			RecycleMessage(msg)
			return nil, ErrBadSource
		}
		msg.Source = line[1:sp]
		if msg.Source == "" {
			RecycleMessage(msg)
			return nil, ErrBadSource
		}
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	var middle, trailing string
	if idx := strings.Index(line, " :"); idx != -1 {
		middle = line[:idx]
		trailing = line[idx+2:]
		msg.TrailingSet = true
	} else if strings.HasPrefix(line, ":") {
		middle = ""
		trailing = line[1:]
		msg.TrailingSet = true
	} else {
		middle = line
	}

	fields := strings.Fields(middle)
	if len(fields) == 0 {
		RecycleMessage(msg)
		return nil, ErrNoCommand
	}

	msg.Command = strings.ToUpper(fields[0])
	msg.Params = fields[1:]
	msg.Trailing = trailing

	if len(msg.Params) > MaxMsgParams {
		RecycleMessage(msg)
		return nil, ErrTooManyParams
	}

	return msg, nil
}
