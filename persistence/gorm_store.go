/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

// Package persistence implements the NickServ/ChanServ backing store on
// top of GORM, grounded on presbrey-pkg/gormoize's connection-caching
// idiom (here simplified to a single cached *gorm.DB per process, since
// ircd only ever opens one store for its lifetime).
package persistence

import (
	"errors"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/go-ircd/ircd"
)

// nickRow is the GORM model backing ircd.NickRecord.
type nickRow struct {
	Nick         string `gorm:"primaryKey"`
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

// channelRow is the GORM model backing ircd.ChannelRecord.
type channelRow struct {
	Name         string `gorm:"primaryKey"`
	Founder      string
	RegisteredAt time.Time
	MLock        string
	VOP          string // comma-joined nick list
	HOP          string
	AOP          string
	SOP          string
}

// Store is a GORM-backed ircd.PersistenceStore.
type Store struct {
	db *gorm.DB
}

// Open connects to the given driver ("sqlite" or "mysql") and DSN,
// migrating the schema if needed.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, errors.New("persistence: unsupported driver " + driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&nickRow{}, &channelRow{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) GetNick(nick string) (*ircd.NickRecord, bool, error) {
	var row nickRow
	err := s.db.First(&row, "nick = ?", strings.ToLower(nick)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rowToNickRecord(&row), true, nil
}

func (s *Store) PutNick(record *ircd.NickRecord) error {
	row := nickRecordToRow(record)
	return s.db.Save(row).Error
}

func (s *Store) DeleteNick(nick string) error {
	return s.db.Delete(&nickRow{}, "nick = ?", strings.ToLower(nick)).Error
}

func (s *Store) GetChannel(name string) (*ircd.ChannelRecord, bool, error) {
	var row channelRow
	err := s.db.First(&row, "name = ?", strings.ToLower(name)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rowToChannelRecord(&row), true, nil
}

func (s *Store) PutChannel(record *ircd.ChannelRecord) error {
	row := channelRecordToRow(record)
	return s.db.Save(row).Error
}

func (s *Store) DeleteChannel(name string) error {
	return s.db.Delete(&channelRow{}, "name = ?", strings.ToLower(name)).Error
}

func (s *Store) ListChannels() ([]*ircd.ChannelRecord, error) {
	var rows []channelRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ircd.ChannelRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rowToChannelRecord(&rows[i]))
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToNickRecord(row *nickRow) *ircd.NickRecord {
	return &ircd.NickRecord{
		Nick:         row.Nick,
		PasswordHash: row.PasswordHash,
		Account:      row.Account,
		Email:        row.Email,
		URL:          row.URL,
		VHost:        row.VHost,
		VHostSetAt:   row.VHostSetAt,
		NoAccess:     row.NoAccess,
		NoOp:         row.NoOp,
		ShowMail:     row.ShowMail,
		RegisteredAt: row.RegisteredAt,
	}
}

func nickRecordToRow(r *ircd.NickRecord) *nickRow {
	return &nickRow{
		Nick:         strings.ToLower(r.Nick),
		PasswordHash: r.PasswordHash,
		Account:      r.Account,
		Email:        r.Email,
		URL:          r.URL,
		VHost:        r.VHost,
		VHostSetAt:   r.VHostSetAt,
		NoAccess:     r.NoAccess,
		NoOp:         r.NoOp,
		ShowMail:     r.ShowMail,
		RegisteredAt: r.RegisteredAt,
	}
}

func rowToChannelRecord(row *channelRow) *ircd.ChannelRecord {
	return &ircd.ChannelRecord{
		Name:         row.Name,
		Founder:      row.Founder,
		RegisteredAt: row.RegisteredAt,
		MLock:        row.MLock,
		VOP:          splitCSV(row.VOP),
		HOP:          splitCSV(row.HOP),
		AOP:          splitCSV(row.AOP),
		SOP:          splitCSV(row.SOP),
	}
}

func channelRecordToRow(r *ircd.ChannelRecord) *channelRow {
	return &channelRow{
		Name:         strings.ToLower(r.Name),
		Founder:      r.Founder,
		RegisteredAt: r.RegisteredAt,
		MLock:        r.MLock,
		VOP:          strings.Join(r.VOP, ","),
		HOP:          strings.Join(r.HOP, ","),
		AOP:          strings.Join(r.AOP, ","),
		SOP:          strings.Join(r.SOP, ","),
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
