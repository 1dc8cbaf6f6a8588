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
)

// ChannelUserModes are the five per-membership booleans, ordered
// founder > protected > operator > half_oper > voice (§3).
type ChannelUserModes struct {
	Founder   bool
	Protected bool
	Operator  bool
	HalfOp    bool
	Voice     bool
}

// Role returns the highest role this membership holds.
func (m ChannelUserModes) Role() ChannelRole {
	switch {
	case m.Founder:
		return RoleFounder
	case m.Protected:
		return RoleProtected
	case m.Operator:
		return RoleOperator
	case m.HalfOp:
		return RoleHalfOp
	case m.Voice:
		return RoleVoice
	default:
		return RoleNone
	}
}

// AtLeast reports whether the membership's role meets or exceeds min.
func (m ChannelUserModes) AtLeast(min ChannelRole) bool {
	return m.Role() >= min
}

// ChannelModes are the structural channel-wide flags (§3 Channel Modes).
// The five role-valued sets (founders/protecteds/operators/half_operators/
// voices) are intentionally not duplicated here: they are derived from
// Channel.members on demand, which makes the invariant "a nick appears in
// modes.operators iff users[nick].operator" hold by construction instead
// of by careful bookkeeping across two copies of the same fact.
type ChannelModes struct {
	InviteOnly         bool
	Moderated          bool
	Secret             bool
	ProtectedTopic     bool
	NoExternalMessages bool
	Registered         bool
	OnlyIRCops         bool

	Key         string
	HasKey      bool
	ClientLimit int
	HasLimit    bool

	// Mask lists; value is the stored entry, which may carry a "|timestamp"
	// suffix. Keyed by the mask string itself for O(1) add/remove.
	Ban             map[string]string
	GlobalBan       map[string]string
	Exception       map[string]string
	InviteException map[string]string
}

// NewChannelModes returns a zero-value ChannelModes with its list maps
// initialised.
func NewChannelModes() ChannelModes {
	return ChannelModes{
		Ban:             make(map[string]string),
		GlobalBan:       make(map[string]string),
		Exception:       make(map[string]string),
		InviteException: make(map[string]string),
	}
}

// Banned implements §4.I's ban/exception predicate: banned iff any
// ban|global_ban mask matches source and no exception mask also matches.
func (m *ChannelModes) Banned(source string) bool {
	matches := func(set map[string]string) bool {
		for entry := range set {
			if MatchMask(maskWithoutTimestamp(entry), source) {
				return true
			}
		}
		return false
	}

	if !matches(m.Ban) && !matches(m.GlobalBan) {
		return false
	}
	return !matches(m.Exception)
}

// String renders the channel's structural mode letters for RPL_CHANNELMODEIS,
// in the order i m s t n r O l k. The limit and key values themselves are
// not included.
func (m *ChannelModes) String() string {
	var b strings.Builder
	b.WriteByte('+')
	if m.InviteOnly {
		b.WriteByte('i')
	}
	if m.Moderated {
		b.WriteByte('m')
	}
	if m.Secret {
		b.WriteByte('s')
	}
	if m.ProtectedTopic {
		b.WriteByte('t')
	}
	if m.NoExternalMessages {
		b.WriteByte('n')
	}
	if m.Registered {
		b.WriteByte('r')
	}
	if m.OnlyIRCops {
		b.WriteByte('O')
	}
	if m.HasLimit {
		b.WriteByte('l')
	}
	if m.HasKey {
		b.WriteByte('k')
	}
	return b.String()
}

// modeChange is a single applied change, used to build the echoed
// "MODE <chan> <changes> <args...>" line.
type modeChange struct {
	adding bool
	letter byte
	arg    string
}

// ApplyChannelModes parses a "+/-modeflags [args...]" token stream per the
// table in §4.I and mutates channel in place. lookupMember resolves a nick
// argument (for o/v/h/q/a) to its current ChannelUserModes, or ok=false if
// the nick isn't a member. It returns the aggregated applied changes
// (collapsed to a single +/- run per direction) and the consumed args, or
// an error numeric-mapped by the caller.
func ApplyChannelModes(channel *Channel, modeStr string, args []string, lookupMember func(nick string) (*ChannelMember, bool)) (string, []string, error) {
	if modeStr == "" {
		return "", nil, ErrMissingParams
	}

	var changes []modeChange
	argIdx := 0
	nextArg := func() (string, bool) {
		if argIdx >= len(args) {
			return "", false
		}
		a := args[argIdx]
		argIdx++
		return a, true
	}

	adding := true
	for i := 0; i < len(modeStr); i++ {
		c := modeStr[i]
		switch c {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		switch c {
		case 'i', 'm', 's', 't', 'n', 'r':
			setSimpleChannelFlag(channel, c, adding)
			changes = append(changes, modeChange{adding, c, ""})

		case 'O':
			channel.modes.OnlyIRCops = adding
			changes = append(changes, modeChange{adding, c, ""})

		case 'k':
			if adding {
				key, ok := nextArg()
				if !ok || key == "" {
					return "", nil, ErrInvalidModeArg
				}
				channel.modes.Key = key
				channel.modes.HasKey = true
				changes = append(changes, modeChange{true, c, key})
			} else {
				channel.modes.Key = ""
				channel.modes.HasKey = false
				changes = append(changes, modeChange{false, c, ""})
			}

		case 'l':
			if adding {
				raw, ok := nextArg()
				if !ok {
					return "", nil, ErrInvalidModeArg
				}
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					return "", nil, ErrInvalidModeArg
				}
				channel.modes.ClientLimit = n
				channel.modes.HasLimit = true
				changes = append(changes, modeChange{true, c, raw})
			} else {
				channel.modes.ClientLimit = 0
				channel.modes.HasLimit = false
				changes = append(changes, modeChange{false, c, ""})
			}

		case 'b', 'B', 'e', 'I':
			mask, ok := nextArg()
			if !ok || mask == "" {
				return "", nil, ErrInvalidModeArg
			}
			applyListMode(channel, c, mask, adding)
			changes = append(changes, modeChange{adding, c, mask})

		case 'o', 'v', 'h', 'q', 'a':
			nick, ok := nextArg()
			if !ok || nick == "" {
				return "", nil, ErrInvalidModeArg
			}
			member, found := lookupMember(nick)
			if !found {
				return "", nil, ErrNoSuchNick
			}
			setRoleFlag(member, c, adding)
			changes = append(changes, modeChange{adding, c, nick})

		default:
			return "", nil, ErrUnknownMode
		}
	}

	return renderModeChanges(changes)
}

func setSimpleChannelFlag(channel *Channel, letter byte, adding bool) {
	switch letter {
	case 'i':
		channel.modes.InviteOnly = adding
	case 'm':
		channel.modes.Moderated = adding
	case 's':
		channel.modes.Secret = adding
	case 't':
		channel.modes.ProtectedTopic = adding
	case 'n':
		channel.modes.NoExternalMessages = adding
	case 'r':
		channel.modes.Registered = adding
	}
}

func applyListMode(channel *Channel, letter byte, mask string, adding bool) {
	var set map[string]string
	switch letter {
	case 'b':
		set = channel.modes.Ban
	case 'B':
		set = channel.modes.GlobalBan
	case 'e':
		set = channel.modes.Exception
	case 'I':
		set = channel.modes.InviteException
	}
	if adding {
		set[mask] = mask
	} else {
		delete(set, mask)
		// list masks may have been stored with a |timestamp suffix; also
		// try removing by bare-mask match.
		for k := range set {
			if maskWithoutTimestamp(k) == maskWithoutTimestamp(mask) {
				delete(set, k)
			}
		}
	}
}

func setRoleFlag(member *ChannelMember, letter byte, adding bool) {
	switch letter {
	case 'o':
		member.Operator = adding
	case 'v':
		member.Voice = adding
	case 'h':
		member.HalfOp = adding
	case 'q':
		member.Founder = adding
	case 'a':
		member.Protected = adding
	}
}

// renderModeChanges collapses a change list into a single "+xy-z" string
// plus the ordered argument list, mirroring what real servers echo back.
func renderModeChanges(changes []modeChange) (string, []string, error) {
	if len(changes) == 0 {
		return "", nil, nil
	}

	var adds, dels []byte
	var addArgs, delArgs []string
	for _, ch := range changes {
		if ch.adding {
			adds = append(adds, ch.letter)
			if ch.arg != "" {
				addArgs = append(addArgs, ch.arg)
			}
		} else {
			dels = append(dels, ch.letter)
			if ch.arg != "" {
				delArgs = append(delArgs, ch.arg)
			}
		}
	}

	var b strings.Builder
	if len(adds) > 0 {
		b.WriteByte(signByte(true))
		b.Write(adds)
	}
	if len(dels) > 0 {
		b.WriteByte(signByte(false))
		b.Write(dels)
	}
	return b.String(), append(addArgs, delArgs...), nil
}

func signByte(adding bool) byte {
	if adding {
		return '+'
	}
	return '-'
}
