/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "time"

// NickRecord is a NickServ-registered account (§4.L, §4.M).
type NickRecord struct {
	Nick         string
	PasswordHash string
	Account      string
	Email        string
	URL          string
	VHost        string
	VHostSetAt   time.Time
	NoAccess     bool
	NoOp         bool
	ShowMail     bool
	RegisteredAt time.Time
}

// ChannelRecord is a ChanServ-registered channel (§4.L, §4.M).
type ChannelRecord struct {
	Name        string
	Founder     string
	RegisteredAt time.Time
	MLock       string
	VOP         []string
	HOP         []string
	AOP         []string
	SOP         []string
}

// PersistenceStore is the storage-backend capability set implemented
// once per backend (§4.M): nick/account records and channel records.
// A nil PersistenceStore disables services: NickServ and ChanServ commands
// reply that services are not available. NewMemoryStore gives a store
// whose records last only for the lifetime of the process.
type PersistenceStore interface {
	GetNick(nick string) (*NickRecord, bool, error)
	PutNick(record *NickRecord) error
	DeleteNick(nick string) error

	GetChannel(name string) (*ChannelRecord, bool, error)
	PutChannel(record *ChannelRecord) error
	DeleteChannel(name string) error
	ListChannels() ([]*ChannelRecord, error)

	Close() error
}

// memoryStore is the PersistenceStore used when no database driver is
// configured: it satisfies the interface with plain maps so NickServ and
// ChanServ behave uniformly regardless of backend.
type memoryStore struct {
	nicks    map[string]*NickRecord
	channels map[string]*ChannelRecord
}

// NewMemoryStore returns a non-persistent, in-process PersistenceStore.
func NewMemoryStore() PersistenceStore {
	return &memoryStore{
		nicks:    make(map[string]*NickRecord),
		channels: make(map[string]*ChannelRecord),
	}
}

func (m *memoryStore) GetNick(nick string) (*NickRecord, bool, error) {
	r, ok := m.nicks[CanonicalName(nick)]
	return r, ok, nil
}

func (m *memoryStore) PutNick(record *NickRecord) error {
	m.nicks[CanonicalName(record.Nick)] = record
	return nil
}

func (m *memoryStore) DeleteNick(nick string) error {
	delete(m.nicks, CanonicalName(nick))
	return nil
}

func (m *memoryStore) GetChannel(name string) (*ChannelRecord, bool, error) {
	r, ok := m.channels[CanonicalName(name)]
	return r, ok, nil
}

func (m *memoryStore) PutChannel(record *ChannelRecord) error {
	m.channels[CanonicalName(record.Name)] = record
	return nil
}

func (m *memoryStore) DeleteChannel(name string) error {
	delete(m.channels, CanonicalName(name))
	return nil
}

func (m *memoryStore) ListChannels() ([]*ChannelRecord, error) {
	out := make([]*ChannelRecord, 0, len(m.channels))
	for _, r := range m.channels {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }
