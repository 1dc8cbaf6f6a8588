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
	"sort"
	"strings"
	"sync"
)

// ChannelMember pairs a joined User with their per-channel role flags.
type ChannelMember struct {
	User *User
	ChannelUserModes
}

// Channel holds all state for a single channel (§3 Channel entity).
type Channel struct {
	sync.RWMutex

	name string

	topicText    string
	topicSetter  string
	topicSetTime int64

	modes ChannelModes

	members map[string]*ChannelMember // keyed by canonical (casefolded) nick

	created       int64
	preconfigured bool // set through SetPreconfigured; survives going empty
}

// NewChannel constructs an empty channel. Members are added afterwards
// via Join, once the channel is registered in global state.
func NewChannel(name string, now int64) *Channel {
	return &Channel{
		name:    name,
		modes:   NewChannelModes(),
		members: make(map[string]*ChannelMember),
		created: now,
	}
}

func (c *Channel) Name() string {
	c.RLock()
	defer c.RUnlock()
	return c.name
}

func (c *Channel) Created() int64 {
	c.RLock()
	defer c.RUnlock()
	return c.created
}

func (c *Channel) Topic() (text, setter string, at int64) {
	c.RLock()
	defer c.RUnlock()
	return c.topicText, c.topicSetter, c.topicSetTime
}

func (c *Channel) SetTopic(text, setter string, at int64) {
	c.Lock()
	defer c.Unlock()
	c.topicText = text
	c.topicSetter = setter
	c.topicSetTime = at
}

// Modes returns a copy of the channel's structural modes, safe to read
// without holding the channel lock afterward. The list maps are shared
// references; callers must not mutate them directly.
func (c *Channel) Modes() ChannelModes {
	c.RLock()
	defer c.RUnlock()
	return c.modes
}

// Member looks up a member by canonical nick.
func (c *Channel) Member(canonicalNick string) (*ChannelMember, bool) {
	c.RLock()
	defer c.RUnlock()
	m, ok := c.members[canonicalNick]
	return m, ok
}

// MemberCount returns the number of joined users.
func (c *Channel) MemberCount() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.members)
}

// IsEmpty reports whether the channel has no members, at which point
// the caller (global state) should tear it down unless preconfigured.
func (c *Channel) IsEmpty() bool {
	c.RLock()
	defer c.RUnlock()
	return len(c.members) == 0
}

// Preconfigured reports whether SetPreconfigured marked this channel, in
// which case it survives going empty (§3, §9).
func (c *Channel) Preconfigured() bool {
	c.RLock()
	defer c.RUnlock()
	return c.preconfigured
}

func (c *Channel) SetPreconfigured(v bool) {
	c.Lock()
	defer c.Unlock()
	c.preconfigured = v
}

// Join inserts user as a member with the given initial roles. founder
// sets the Founder role on the new member; joinOneChannel always passes
// false, so a JOIN by itself grants no role.
func (c *Channel) Join(user *User, canonicalNick string, founder bool) *ChannelMember {
	c.Lock()
	defer c.Unlock()
	member := &ChannelMember{User: user}
	if founder {
		member.Founder = true
	}
	c.members[canonicalNick] = member
	return member
}

// Part removes a member.
func (c *Channel) Part(canonicalNick string) {
	c.Lock()
	defer c.Unlock()
	delete(c.members, canonicalNick)
}

// RenameMember re-keys a member's entry from its old canonical nick to
// its new one, carrying its ChannelUserModes across unchanged (§4.I).
// No-op if oldCanonical isn't a member.
func (c *Channel) RenameMember(oldCanonical, newCanonical string) {
	c.Lock()
	defer c.Unlock()
	member, ok := c.members[oldCanonical]
	if !ok {
		return
	}
	delete(c.members, oldCanonical)
	c.members[newCanonical] = member
}

// Send writes msg to every member's connection except the one belonging
// to excludeNick (pass "" to exclude none). Write errors are left for
// the target connection's own write loop to discover and tear down.
func (c *Channel) Send(msg *Message, excludeNick string) {
	c.RLock()
	defer c.RUnlock()
	for nick, member := range c.members {
		if nick == excludeNick {
			continue
		}
		if conn := member.User.Conn(); conn != nil {
			conn.Write(msg)
		}
	}
}

// SendToMinRole writes msg only to members whose role is at least
// minRole, excluding excludeNick. Used for PRIVMSG/NOTICE targets
// carrying a §3 prefix subset (~&@%+).
func (c *Channel) SendToMinRole(msg *Message, minRole ChannelRole, excludeNick string) {
	c.RLock()
	defer c.RUnlock()
	for nick, member := range c.members {
		if nick == excludeNick {
			continue
		}
		if !member.AtLeast(minRole) {
			continue
		}
		if conn := member.User.Conn(); conn != nil {
			conn.Write(msg)
		}
	}
}

// Names returns the NAMES-reply tokens for this channel, each prefixed
// by the member's highest role's sigil, sorted case-insensitively.
func (c *Channel) Names() []string {
	c.RLock()
	defer c.RUnlock()
	out := make([]string, 0, len(c.members))
	for _, member := range c.members {
		nick := member.User.Nick()
		if p := member.Role().Prefix(); p != 0 {
			nick = string(p) + nick
		}
		out = append(out, nick)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func (c *Channel) Founders() []string   { return c.roleNicksExact(RoleFounder) }
func (c *Channel) Protecteds() []string { return c.roleNicksExact(RoleProtected) }
func (c *Channel) Operators() []string  { return c.roleNicksExact(RoleOperator) }
func (c *Channel) HalfOps() []string    { return c.roleNicksExact(RoleHalfOp) }
func (c *Channel) Voices() []string     { return c.roleNicksExact(RoleVoice) }

func (c *Channel) roleNicksExact(role ChannelRole) []string {
	c.RLock()
	defer c.RUnlock()
	var out []string
	for _, member := range c.members {
		if member.Role() == role {
			out = append(out, member.User.Nick())
		}
	}
	return out
}

// ApplyModes runs ApplyChannelModes against this channel under its
// write lock, resolving nick arguments against current membership.
func (c *Channel) ApplyModes(modeStr string, args []string) (string, []string, error) {
	c.Lock()
	defer c.Unlock()
	return ApplyChannelModes(c, modeStr, args, func(nick string) (*ChannelMember, bool) {
		m, ok := c.members[CanonicalName(nick)]
		return m, ok
	})
}

// Banned reports whether source matches the channel's ban/global_ban
// lists without a matching exception.
func (c *Channel) Banned(source string) bool {
	c.RLock()
	defer c.RUnlock()
	return c.modes.Banned(source)
}

// IsInviteExempt reports whether source matches an invite exception mask.
func (c *Channel) IsInviteExempt(source string) bool {
	c.RLock()
	defer c.RUnlock()
	for entry := range c.modes.InviteException {
		if MatchMask(maskWithoutTimestamp(entry), source) {
			return true
		}
	}
	return false
}
