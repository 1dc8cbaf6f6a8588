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

import "strings"

// UserModes holds the eight boolean user-mode flags (§3). Serialisation
// is "+" followed by the set flags' letters in the fixed order below.
type UserModes struct {
	Invisible bool // i
	LocalOper bool // o - oper on this server only
	Oper      bool // O - network-wide operator
	Registered bool // r - identified via NickServ/SASL
	Wallops   bool // w - receives WALLOPS
	Websocket bool // W - connected over the WebSocket transport
	Secure    bool // z - connected over TLS
	Cloaked   bool // x - hostname replaced by the cloak
}

// IsLocalOper reports local_oper OR oper, per §3's is_local_oper derivation.
func (m UserModes) IsLocalOper() bool {
	return m.LocalOper || m.Oper
}

// userModeLetters is the fixed serialisation order: i o O r w W z x.
var userModeLetters = []struct {
	letter byte
	get    func(*UserModes) bool
	set    func(*UserModes, bool)
}{
	{'i', func(m *UserModes) bool { return m.Invisible }, func(m *UserModes, v bool) { m.Invisible = v }},
	{'o', func(m *UserModes) bool { return m.LocalOper }, func(m *UserModes, v bool) { m.LocalOper = v }},
	{'O', func(m *UserModes) bool { return m.Oper }, func(m *UserModes, v bool) { m.Oper = v }},
	{'r', func(m *UserModes) bool { return m.Registered }, func(m *UserModes, v bool) { m.Registered = v }},
	{'w', func(m *UserModes) bool { return m.Wallops }, func(m *UserModes, v bool) { m.Wallops = v }},
	{'W', func(m *UserModes) bool { return m.Websocket }, func(m *UserModes, v bool) { m.Websocket = v }},
	{'z', func(m *UserModes) bool { return m.Secure }, func(m *UserModes, v bool) { m.Secure = v }},
	{'x', func(m *UserModes) bool { return m.Cloaked }, func(m *UserModes, v bool) { m.Cloaked = v }},
}

// String renders the mode set as "+<letters>", or "+" if nothing is set.
func (m UserModes) String() string {
	var b strings.Builder
	b.WriteByte('+')
	for _, f := range userModeLetters {
		if f.get(&m) {
			b.WriteByte(f.letter)
		}
	}
	return b.String()
}

// letterSettable reports whether a given user-mode letter may be toggled
// directly by MODE (as opposed to being a side-effect of OPER, SASL, or
// transport selection).
func userModeLetterSettable(letter byte) bool {
	switch letter {
	case 'i', 'w':
		return true
	default:
		return false
	}
}

// ApplyUserModeString parses a "+/-flags" token against target, honouring
// userModeLetterSettable, and returns the letters actually changed (for
// echoing back the applied subset, mirroring the channel MODE contract).
func ApplyUserModeString(target *UserModes, modes string) (applied string, err error) {
	adding := true
	var changed strings.Builder

	for i := 0; i < len(modes); i++ {
		c := modes[i]
		switch c {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		if !userModeLetterSettable(c) {
			return "", ErrUnknownMode
		}

		for _, f := range userModeLetters {
			if f.letter != c {
				continue
			}
			if f.get(target) == adding {
				continue // no-op: already in the desired state
			}
			f.set(target, adding)
			if adding {
				changed.WriteByte('+')
			} else {
				changed.WriteByte('-')
			}
			changed.WriteByte(c)
		}
	}

	return changed.String(), nil
}
