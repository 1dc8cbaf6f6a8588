/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "strings"

// Capability is a single IRCv3 CAP token this server understands.
type Capability uint32

// Supported capability tokens, exactly the set advertised on CAP LS.
const (
	CapMultiPrefix Capability = 1 << iota
	CapSasl
	CapMessageTags
	CapBatch
	CapLabeledResponse
	CapChatHistory
	CapReadMarker
	CapEchoMessage
	CapSetname
	CapUserhostInNames
	CapInviteNotify
	CapMonitorCap
	CapWatch
)

// capTokens maps each capability bit to its wire token, in the fixed
// order the CAP LS response lists them.
var capTokens = []struct {
	bit   Capability
	token string
}{
	{CapMultiPrefix, "multi-prefix"},
	{CapSasl, "sasl"},
	{CapMessageTags, "message-tags"},
	{CapBatch, "batch"},
	{CapLabeledResponse, "labeled-response"},
	{CapChatHistory, "chathistory"},
	{CapReadMarker, "read-marker"},
	{CapEchoMessage, "echo-message"},
	{CapSetname, "setname"},
	{CapUserhostInNames, "userhost-in-names"},
	{CapInviteNotify, "invite-notify"},
	{CapMonitorCap, "monitor"},
	{CapWatch, "watch"},
}

var capTokenByName = func() map[string]Capability {
	m := make(map[string]Capability, len(capTokens))
	for _, t := range capTokens {
		m[t.token] = t.bit
	}
	return m
}()

// CapLSString renders the full capability token list for a CAP LS reply.
func CapLSString() string {
	tokens := make([]string, len(capTokens))
	for i, t := range capTokens {
		tokens[i] = t.token
	}
	return strings.Join(tokens, " ")
}

// ParseCapToken resolves a wire token to its bit, reporting ok=false for
// anything this server doesn't support (the caller NAKs those).
func ParseCapToken(token string) (Capability, bool) {
	bit, ok := capTokenByName[strings.ToLower(token)]
	return bit, ok
}

// Capabilities is the set of capabilities a connection has negotiated.
type Capabilities struct {
	set Capability
}

func (c *Capabilities) Has(cap Capability) bool {
	return c.set&cap != 0
}

func (c *Capabilities) Add(cap Capability) {
	c.set |= cap
}

func (c *Capabilities) Remove(cap Capability) {
	c.set &^= cap
}

// String renders the negotiated set back to tokens, e.g. for CAP LIST.
func (c *Capabilities) String() string {
	var tokens []string
	for _, t := range capTokens {
		if c.set&t.bit != 0 {
			tokens = append(tokens, t.token)
		}
	}
	return strings.Join(tokens, " ")
}

// SaslMechanism identifies a supported SASL mechanism (§4.H).
type SaslMechanism uint8

const (
	SaslPlain SaslMechanism = iota
	SaslDigestMD5
)

func ParseSaslMechanism(name string) (SaslMechanism, bool) {
	switch strings.ToUpper(name) {
	case "PLAIN":
		return SaslPlain, true
	case "MD5", "DIGEST-MD5":
		return SaslDigestMD5, true
	default:
		return 0, false
	}
}
