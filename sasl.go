/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"encoding/base64"
	"strings"
)

// MaxSaslDatumLength bounds a single AUTHENTICATE datum (§4.H).
const saslMaxDatumLength = MaxSaslDatumLength

// saslState tracks one connection's SASL negotiation across the two
// AUTHENTICATE round-trips: mechanism selection, then the credential
// datum.
type saslState struct {
	mechanism    SaslMechanism
	mechanismSet bool
	attempted    bool
}

// newSaslState returns a fresh, unattempted SASL state.
func newSaslState() *saslState {
	return &saslState{}
}

// saslOutcome is what HandleAuthenticate tells the caller to do with the
// connection in response to one AUTHENTICATE line.
type saslOutcome struct {
	code uint16 // 0 means "no numeric, negotiation continuing"
	text string
	plus bool // send bare "AUTHENTICATE +" to request the next datum
}

// HandleAuthenticate advances the SASL state machine by one datum (§4.H).
// On success it sets conn.saslAuthenticated/conn.saslAccount itself. The
// caller (the AUTHENTICATE command handler) is responsible for sending the
// resulting numeric/plus prompt and for re-running the authentication
// procedure if NICK/USER are already set.
func (conn *Conn) HandleAuthenticate(datum string) saslOutcome {
	conn.Lock()
	defer conn.Unlock()

	if conn.saslAuthenticated {
		return saslOutcome{code: ReplySaslAlready, text: ErrSaslAlready.Error()}
	}

	if conn.saslState == nil {
		conn.saslState = newSaslState()
	}
	state := conn.saslState

	if datum == "" {
		return saslOutcome{code: ReplySaslMechs, text: "PLAIN,DIGEST-MD5"}
	}

	if datum == "*" {
		conn.saslState = nil
		return saslOutcome{code: ReplySaslAborted, text: ErrSaslAborted.Error()}
	}

	if !state.mechanismSet {
		mech, ok := ParseSaslMechanism(datum)
		if !ok {
			conn.saslState = nil
			return saslOutcome{code: ReplySaslFail, text: ErrSaslFail.Error()}
		}
		state.mechanism = mech
		state.mechanismSet = true
		return saslOutcome{plus: true}
	}

	if state.attempted {
		return saslOutcome{code: ReplySaslAlready, text: ErrSaslAlready.Error()}
	}
	state.attempted = true

	if len(datum) > saslMaxDatumLength {
		conn.saslState = nil
		return saslOutcome{code: ReplySaslTooLong, text: ErrSaslTooLong.Error()}
	}

	raw, err := base64.StdEncoding.DecodeString(datum)
	if err != nil {
		conn.saslState = nil
		return saslOutcome{code: ReplySaslFail, text: ErrSaslFail.Error()}
	}

	var account string
	var ok bool
	switch state.mechanism {
	case SaslPlain:
		account, ok = conn.verifySaslPlain(string(raw))
	case SaslDigestMD5:
		account, ok = conn.verifySaslDigestMD5(string(raw))
	}

	conn.saslState = nil
	if !ok {
		return saslOutcome{code: ReplySaslFail, text: ErrSaslFail.Error()}
	}

	conn.saslAuthenticated = true
	conn.saslAccount = account
	return saslOutcome{code: ReplySaslSuccess, text: "SASL authentication successful"}
}

// verifySaslPlain implements the PLAIN decoding rule of §4.H. Caller
// holds conn's lock.
func (conn *Conn) verifySaslPlain(raw string) (account string, ok bool) {
	parts := strings.SplitN(raw, "\x00", 3)
	if len(parts) != 3 {
		return "", false
	}
	authcid, password := parts[1], parts[2]

	if user := findConfiguredUser(conn.server.Config, authcid); user != nil {
		return authcid, VerifyPassword(password, user.Password)
	}

	if conn.server.Config.GlobalPassword != "" {
		return authcid, VerifyPassword(password, conn.server.Config.GlobalPassword)
	}

	// No configured user or global password: defer to nick-database
	// verification during the authentication procedure (§4.H step 5).
	return authcid, true
}

// verifySaslDigestMD5 implements the simplified DIGEST-MD5 rule of
// §4.H: "username\0password" against a stored MD5 hash. Caller holds
// conn's lock.
func (conn *Conn) verifySaslDigestMD5(raw string) (account string, ok bool) {
	parts := strings.SplitN(raw, "\x00", 2)
	if len(parts) != 2 {
		return "", false
	}
	username, password := parts[0], parts[1]

	if user := findConfiguredUser(conn.server.Config, username); user != nil {
		return username, VerifyMD5Password(password, user.Password)
	}
	return username, false
}

// findConfiguredUser looks up a statically configured account by name.
func findConfiguredUser(cfg *Config, username string) *ConfiguredUser {
	for i := range cfg.Users {
		if strings.EqualFold(cfg.Users[i].Username, username) {
			return &cfg.Users[i]
		}
	}
	return nil
}
