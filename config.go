/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"os"

	"github.com/BurntSushi/toml"
)

// OperatorConfig describes a configured IRC operator account (§4.K OPER).
type OperatorConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password_hash"`
	Mask     string `toml:"mask"`
}

// ConfiguredUser describes a pre-provisioned user account, checked during
// authentication before falling back to the global password (§4.H).
type ConfiguredUser struct {
	Username string `toml:"username"`
	Password string `toml:"password_hash"`
	Mask     string `toml:"mask"`
}

// ChannelDefault seeds the default modes and access lists of a channel
// named in the config, applied every time a user joins it (§4.I).
type ChannelDefault struct {
	Name       string   `toml:"name"`
	Topic      string   `toml:"topic"`
	Modes      string   `toml:"modes"`
	Founders   []string `toml:"founders"`
	Protecteds []string `toml:"protecteds"`
	Operators  []string `toml:"operators"`
	HalfOps    []string `toml:"half_operators"`
	Voices     []string `toml:"voices"`
}

// PersistenceConfig selects and parameterizes the backing store (§4.M).
type PersistenceConfig struct {
	Driver string `toml:"driver"` // "sqlite", "mysql", or "" (disabled)
	DSN    string `toml:"dsn"`
}

// MetricsConfig controls the Prometheus/Echo admin surface (DOMAIN STACK).
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// WebSocketConfig controls the gorilla/websocket transport (§4.A).
type WebSocketConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// Config is the full server configuration, loaded from TOML and
// optionally overridden by CLI flags (cmd/ircd/main.go).
type Config struct {
	ListenAddress string `toml:"listen_address"`
	Hostname      string `toml:"hostname"`
	Network       string `toml:"network"`
	Welcome       string `toml:"welcome"`
	MOTDFile      string `toml:"motd_file"`
	MOTDLines     []string

	GlobalPassword string `toml:"global_password_hash"`

	AdminLocation1 string `toml:"admin_location1"`
	AdminLocation2 string `toml:"admin_location2"`
	AdminEmail     string `toml:"admin_email"`

	TLSEnabled  bool   `toml:"tls_enabled"`
	TLSAddress  string `toml:"tls_address"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`

	DNSLookupEnabled bool `toml:"dns_lookup_enabled"`

	CloakKey1   string `toml:"cloak_key1"`
	CloakKey2   string `toml:"cloak_key2"`
	CloakKey3   string `toml:"cloak_key3"`
	CloakPrefix string `toml:"cloak_prefix"`

	PingTimeoutSeconds int `toml:"ping_timeout_seconds"`
	PongTimeoutSeconds int `toml:"pong_timeout_seconds"`

	Operators []OperatorConfig `toml:"operators"`
	Users     []ConfiguredUser `toml:"users"`
	Channels  []ChannelDefault `toml:"channels"`

	Persistence PersistenceConfig `toml:"persistence"`
	Metrics     MetricsConfig     `toml:"metrics"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
}

// DefaultConfig returns a Config with the same baseline values a fresh
// install would run with (grounded on the teacher's settings.go limits).
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:      ":6667",
		Hostname:           "localhost",
		Network:            "GoIRCd",
		Welcome:            "Welcome to the server.",
		TLSAddress:         ":6697",
		PingTimeoutSeconds: int(DefaultPingTimeout.Seconds()),
		PongTimeoutSeconds: int(DefaultPongTimeout.Seconds()),
		CloakPrefix:        "cloak",
	}
}

// LoadConfig reads and decodes a TOML configuration file, filling in any
// zero-valued fields from DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.MOTDFile != "" {
		data, err := os.ReadFile(cfg.MOTDFile)
		if err == nil {
			cfg.MOTDLines = splitLines(string(data))
		}
	}

	return cfg, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// CloakKeys extracts this server's cloaking configuration.
func (c *Config) CloakKeys() CloakKeys {
	return CloakKeys{K1: c.CloakKey1, K2: c.CloakKey2, K3: c.CloakKey3, Prefix: c.CloakPrefix}
}
