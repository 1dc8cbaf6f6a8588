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
	"sync"
)

// NickHistoryEntry is an immutable snapshot of a user's prior identity,
// keyed under the nick they formerly held (§3).
type NickHistoryEntry struct {
	Username string
	Hostname string
	Cloak    string
	Realname string
	Signon   int64
	At       int64
}

// User holds all of the state in the context of a connected, registered
// user (§3 User entity).
type User struct {
	sync.RWMutex

	nick     string
	username string
	realname string
	hostname string
	cloak    string
	source   string

	modes UserModes
	away  string

	channels  map[string]struct{}
	invitedTo map[string]struct{}

	lastActivity int64
	signon       int64
	identified   bool
	account      string

	conn *Conn
}

// NewUser constructs a User bound to conn, with signon stamped to now.
func NewUser(conn *Conn, nick, username, realname, hostname string, now int64) *User {
	u := &User{
		nick:         nick,
		username:     username,
		realname:     realname,
		hostname:     hostname,
		cloak:        hostname,
		channels:     make(map[string]struct{}),
		invitedTo:    make(map[string]struct{}),
		signon:       now,
		lastActivity: now,
		conn:         conn,
	}
	u.recomputeSource()
	return u
}

// displayHost returns the cloak if the cloaked mode is set, else the
// raw hostname.
func (user *User) displayHost() string {
	if user.modes.Cloaked {
		return user.cloak
	}
	return user.hostname
}

// recomputeSource rebuilds the cached source string; caller must hold
// the write lock (§3 "whenever nick, username, or cloak changes").
func (user *User) recomputeSource() {
	user.source = user.nick + "!~" + user.username + "@" + user.displayHost()
}

func (user *User) Nick() string {
	user.RLock()
	defer user.RUnlock()
	return user.nick
}

func (user *User) SetNick(nick string) {
	user.Lock()
	defer user.Unlock()
	user.nick = nick
	user.recomputeSource()
}

func (user *User) Username() string {
	user.RLock()
	defer user.RUnlock()
	return user.username
}

func (user *User) SetUsername(username string) {
	user.Lock()
	defer user.Unlock()
	user.username = username
	user.recomputeSource()
}

func (user *User) Realname() string {
	user.RLock()
	defer user.RUnlock()
	return user.realname
}

func (user *User) SetRealname(realname string) {
	user.Lock()
	defer user.Unlock()
	user.realname = realname
}

func (user *User) Hostname() string {
	user.RLock()
	defer user.RUnlock()
	return user.hostname
}

func (user *User) SetHostname(hostname string) {
	user.Lock()
	defer user.Unlock()
	user.hostname = hostname
	user.recomputeSource()
}

func (user *User) Cloak() string {
	user.RLock()
	defer user.RUnlock()
	return user.cloak
}

func (user *User) SetCloak(cloak string) {
	user.Lock()
	defer user.Unlock()
	user.cloak = cloak
	user.recomputeSource()
}

// Source returns the cached "nick!~username@displayhost" string.
func (user *User) Source() string {
	user.RLock()
	defer user.RUnlock()
	return user.source
}

func (user *User) Modes() UserModes {
	user.RLock()
	defer user.RUnlock()
	return user.modes
}

// SetModes replaces the mode set wholesale (used after ApplyUserModeString
// or OPER/SASL side effects), recomputing source since cloaked may flip.
func (user *User) SetModes(m UserModes) {
	user.Lock()
	defer user.Unlock()
	user.modes = m
	user.recomputeSource()
}

func (user *User) Away() string {
	user.RLock()
	defer user.RUnlock()
	return user.away
}

func (user *User) IsAway() bool {
	user.RLock()
	defer user.RUnlock()
	return user.away != ""
}

func (user *User) SetAway(text string) {
	user.Lock()
	defer user.Unlock()
	user.away = text
}

// Channels returns a snapshot slice of joined channel canonical names.
func (user *User) Channels() []string {
	user.RLock()
	defer user.RUnlock()
	out := make([]string, 0, len(user.channels))
	for c := range user.channels {
		out = append(out, c)
	}
	return out
}

func (user *User) InChannel(canonical string) bool {
	user.RLock()
	defer user.RUnlock()
	_, ok := user.channels[canonical]
	return ok
}

func (user *User) addChannel(canonical string) {
	user.Lock()
	defer user.Unlock()
	user.channels[canonical] = struct{}{}
}

func (user *User) removeChannel(canonical string) {
	user.Lock()
	defer user.Unlock()
	delete(user.channels, canonical)
}

func (user *User) ChannelCount() int {
	user.RLock()
	defer user.RUnlock()
	return len(user.channels)
}

func (user *User) Invite(canonical string) {
	user.Lock()
	defer user.Unlock()
	user.invitedTo[canonical] = struct{}{}
}

func (user *User) IsInvited(canonical string) bool {
	user.RLock()
	defer user.RUnlock()
	_, ok := user.invitedTo[canonical]
	return ok
}

func (user *User) LastActivity() int64 {
	user.RLock()
	defer user.RUnlock()
	return user.lastActivity
}

func (user *User) Touch(now int64) {
	user.Lock()
	defer user.Unlock()
	user.lastActivity = now
}

func (user *User) Signon() int64 {
	user.RLock()
	defer user.RUnlock()
	return user.signon
}

func (user *User) Identified() bool {
	user.RLock()
	defer user.RUnlock()
	return user.identified
}

func (user *User) Account() string {
	user.RLock()
	defer user.RUnlock()
	return user.account
}

// SetIdentified marks the user as authenticated to the given NickServ
// account (normally their own nick), setting the registered user mode.
func (user *User) SetIdentified(account string) {
	user.Lock()
	defer user.Unlock()
	user.identified = true
	user.account = account
	user.modes.Registered = true
}

// NickHistorySnapshot captures this user's identity for insertion into
// the global nick-history table on rename or disconnect.
func (user *User) NickHistorySnapshot(now int64) NickHistoryEntry {
	user.RLock()
	defer user.RUnlock()
	return NickHistoryEntry{
		Username: user.username,
		Hostname: user.hostname,
		Cloak:    user.cloak,
		Realname: user.realname,
		Signon:   user.signon,
		At:       now,
	}
}

// Conn returns the underlying connection, used by channel broadcast fan-out.
func (user *User) Conn() *Conn {
	user.RLock()
	defer user.RUnlock()
	return user.conn
}
