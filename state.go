/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"sync"

	"github.com/go-ircd/ircd/shared/concurrentmap"
)

// GlobalState is the server's single shared registry of users, channels,
// nick-history, and the wallops recipient set (§4.E, §9). Every cross-map
// mutation (e.g. removing a user cascades into channel membership removal
// and a nick-history insert) happens under the one write lock below, so
// readers never observe a half-finished removal. This is deliberately a
// plain-map-under-one-mutex design rather than a collection of
// independently-locked concurrent maps: the spec's invariants span maps,
// so the lock has to.
type GlobalState struct {
	sync.RWMutex

	users    map[string]*User    // canonical nick -> User
	channels map[string]*Channel // canonical name -> Channel

	wallopsRecipients map[string]*User // canonical nick -> User, subset of users with +w

	nickHistory map[string][]NickHistoryEntry // canonical former-nick -> entries, newest first
	historyMax  int

	operatorCount  int
	invisibleCount int
	peakUsers      int
	startedAt      int64

	// connsByIP counts live connections per remote address (§5), guarded
	// by its own lock distinct from the registry lock above: connection
	// admission happens before a User exists, so it cannot wait on the
	// same mutex as user/channel mutation without serializing unrelated
	// work. This is the genuine home for the teacher's generic
	// concurrentmap type.
	connsByIP concurrentmap.ConcurrentMap[string, int]
}

// NewGlobalState constructs an empty registry.
func NewGlobalState(now int64, historyMax int) *GlobalState {
	return &GlobalState{
		users:             make(map[string]*User),
		channels:          make(map[string]*Channel),
		wallopsRecipients: make(map[string]*User),
		nickHistory:       make(map[string][]NickHistoryEntry),
		historyMax:        historyMax,
		startedAt:         now,
		connsByIP:         concurrentmap.New[string, int](),
	}
}

// AddUser inserts user under its current nick, failing with ErrNickInUse
// if the canonical nick is already taken.
func (gs *GlobalState) AddUser(user *User) error {
	gs.Lock()
	defer gs.Unlock()

	key := CanonicalName(user.Nick())
	if _, exists := gs.users[key]; exists {
		return ErrNickInUse
	}
	gs.users[key] = user
	if user.Modes().Invisible {
		gs.invisibleCount++
	}
	if len(gs.users) > gs.peakUsers {
		gs.peakUsers = len(gs.users)
	}
	return nil
}

// RenameUser moves a user's registry entry to a new canonical key and
// snapshots its old identity into nick-history under the old nick.
func (gs *GlobalState) RenameUser(user *User, oldNick, newNick string, now int64) error {
	gs.Lock()
	defer gs.Unlock()

	oldKey := CanonicalName(oldNick)
	newKey := CanonicalName(newNick)

	if newKey != oldKey {
		if _, exists := gs.users[newKey]; exists {
			return ErrNickInUse
		}
	}

	snapshot := user.NickHistorySnapshot(now)
	gs.insertNickHistoryLocked(oldKey, snapshot)

	delete(gs.users, oldKey)
	gs.users[newKey] = user

	if recipient, ok := gs.wallopsRecipients[oldKey]; ok {
		delete(gs.wallopsRecipients, oldKey)
		gs.wallopsRecipients[newKey] = recipient
	}

	if newKey != oldKey {
		for _, chanName := range user.Channels() {
			if channel, ok := gs.channels[chanName]; ok {
				channel.RenameMember(oldKey, newKey)
			}
		}
	}

	return nil
}

// RemoveUser deletes user from every registry it participates in: the
// nick table, every joined channel's membership (destroying channels
// that become empty and aren't preconfigured), the wallops set, and
// inserts a final nick-history snapshot. All of this happens atomically
// under the single write lock (§4.E "remove_user cascades").
func (gs *GlobalState) RemoveUser(user *User, now int64) {
	gs.Lock()
	defer gs.Unlock()

	nick := user.Nick()
	key := CanonicalName(nick)

	for _, chanName := range user.Channels() {
		if channel, ok := gs.channels[chanName]; ok {
			channel.Part(key)
			if channel.IsEmpty() && !channel.Preconfigured() {
				delete(gs.channels, chanName)
			}
		}
	}

	if user.Modes().Invisible {
		gs.invisibleCount--
	}
	if user.Modes().IsLocalOper() {
		gs.operatorCount--
	}

	delete(gs.users, key)
	delete(gs.wallopsRecipients, key)

	gs.insertNickHistoryLocked(key, user.NickHistorySnapshot(now))
}

func (gs *GlobalState) insertNickHistoryLocked(key string, entry NickHistoryEntry) {
	entries := append([]NickHistoryEntry{entry}, gs.nickHistory[key]...)
	if len(entries) > gs.historyMax {
		entries = entries[:gs.historyMax]
	}
	gs.nickHistory[key] = entries
}

// NickHistory returns a snapshot of the bounded history for a canonical
// former nick, newest entry first.
func (gs *GlobalState) NickHistory(canonicalNick string) []NickHistoryEntry {
	gs.RLock()
	defer gs.RUnlock()
	src := gs.nickHistory[canonicalNick]
	out := make([]NickHistoryEntry, len(src))
	copy(out, src)
	return out
}

// LookupUser finds a user by nick (any casing).
func (gs *GlobalState) LookupUser(nick string) (*User, bool) {
	gs.RLock()
	defer gs.RUnlock()
	u, ok := gs.users[CanonicalName(nick)]
	return u, ok
}

// LookupChannel finds a channel by name (any casing).
func (gs *GlobalState) LookupChannel(name string) (*Channel, bool) {
	gs.RLock()
	defer gs.RUnlock()
	c, ok := gs.channels[CanonicalName(name)]
	return c, ok
}

// GetOrCreateChannel returns the existing channel for name, or creates
// and registers a fresh one, reporting which happened.
func (gs *GlobalState) GetOrCreateChannel(name string, now int64) (channel *Channel, created bool) {
	gs.Lock()
	defer gs.Unlock()

	key := CanonicalName(name)
	if c, ok := gs.channels[key]; ok {
		return c, false
	}
	c := NewChannel(name, now)
	gs.channels[key] = c
	return c, true
}

// RemoveUserFromChannel detaches user from channel and, unless the
// channel is preconfigured, destroys it once it goes empty — the
// auto-creation/auto-destruction invariant from §3.
func (gs *GlobalState) RemoveUserFromChannel(user *User, channel *Channel) {
	gs.Lock()
	defer gs.Unlock()

	key := CanonicalName(channel.Name())
	channel.Part(CanonicalName(user.Nick()))
	user.removeChannel(key)

	if channel.IsEmpty() && !channel.Preconfigured() {
		delete(gs.channels, key)
	}
}

// SetWallopsRecipient enrolls or removes user from the wallops broadcast
// set, mirroring their +w user mode.
func (gs *GlobalState) SetWallopsRecipient(user *User, enabled bool) {
	gs.Lock()
	defer gs.Unlock()
	key := CanonicalName(user.Nick())
	if enabled {
		gs.wallopsRecipients[key] = user
	} else {
		delete(gs.wallopsRecipients, key)
	}
}

// Wallops writes msg to every enrolled recipient's connection.
func (gs *GlobalState) Wallops(msg *Message) {
	gs.RLock()
	defer gs.RUnlock()
	for _, user := range gs.wallopsRecipients {
		if conn := user.Conn(); conn != nil {
			conn.Write(msg)
		}
	}
}

// AdjustOperatorCount is called when a user's oper status flips.
func (gs *GlobalState) AdjustOperatorCount(delta int) {
	gs.Lock()
	defer gs.Unlock()
	gs.operatorCount += delta
}

// AdjustInvisibleCount is called when a user's invisible mode flips.
func (gs *GlobalState) AdjustInvisibleCount(delta int) {
	gs.Lock()
	defer gs.Unlock()
	gs.invisibleCount += delta
}

func (gs *GlobalState) UserCount() int {
	gs.RLock()
	defer gs.RUnlock()
	return len(gs.users)
}

func (gs *GlobalState) ChannelCount() int {
	gs.RLock()
	defer gs.RUnlock()
	return len(gs.channels)
}

func (gs *GlobalState) OperatorCount() int {
	gs.RLock()
	defer gs.RUnlock()
	return gs.operatorCount
}

func (gs *GlobalState) InvisibleCount() int {
	gs.RLock()
	defer gs.RUnlock()
	return gs.invisibleCount
}

func (gs *GlobalState) PeakUsers() int {
	gs.RLock()
	defer gs.RUnlock()
	return gs.peakUsers
}

func (gs *GlobalState) StartedAt() int64 {
	return gs.startedAt
}

// AllUsers returns a snapshot slice of every registered user.
func (gs *GlobalState) AllUsers() []*User {
	gs.RLock()
	defer gs.RUnlock()
	out := make([]*User, 0, len(gs.users))
	for _, u := range gs.users {
		out = append(out, u)
	}
	return out
}

// AllChannels returns a snapshot slice of every registered channel.
func (gs *GlobalState) AllChannels() []*Channel {
	gs.RLock()
	defer gs.RUnlock()
	out := make([]*Channel, 0, len(gs.channels))
	for _, c := range gs.channels {
		out = append(out, c)
	}
	return out
}

// IncomingConn registers a new connection from addr against the per-IP
// limit, returning the new count.
func (gs *GlobalState) IncomingConn(addr string) int {
	n, _ := gs.connsByIP.Get(addr)
	n++
	gs.connsByIP.Set(addr, n)
	return n
}

// ClosedConn decrements the per-IP count for addr, removing the entry
// once it reaches zero.
func (gs *GlobalState) ClosedConn(addr string) {
	n, ok := gs.connsByIP.Get(addr)
	if !ok {
		return
	}
	n--
	if n <= 0 {
		gs.connsByIP.Delete(addr)
		return
	}
	gs.connsByIP.Set(addr, n)
}
