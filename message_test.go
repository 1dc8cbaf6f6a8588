/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageRender(t *testing.T) {
	m := &Message{
		Source:  "irc.someserver.net",
		Command: CmdPrivMsg,
		Params:  []string{"#channel"},
	}
	m.WithTrailing("I am the server")
	assert.Equal(t, ":irc.someserver.net PRIVMSG #channel :I am the server\r\n", m.Render())
}

func TestMessageRenderNumeric(t *testing.T) {
	m := &Message{
		Source: "irc.someserver.net",
		Code:   ReplyWelcome,
		Params: []string{"nick1"},
	}
	m.WithTrailing("Welcome to the server")
	assert.Equal(t, ":irc.someserver.net 001 nick1 :Welcome to the server\r\n", m.Render())
}

func TestMessageRenderNoTrailing(t *testing.T) {
	m := &Message{
		Source:  "irc.someserver.net",
		Command: CmdPing,
		Params:  []string{"token"},
	}
	assert.Equal(t, ":irc.someserver.net PING token\r\n", m.Render())
}

func TestMessageRenderTruncatesExcessParams(t *testing.T) {
	m := &Message{
		Command: CmdPrivMsg,
		Params:  make([]string, MaxMsgParams+5),
	}
	expected := "PRIVMSG" + strings.Repeat(" ", MaxMsgParams) + "\r\n"
	assert.Equal(t, expected, m.Render())
}

func TestMessageScrub(t *testing.T) {
	m := &Message{
		Source:  "irc.someserver.net",
		Command: CmdPrivMsg,
		Code:    ReplyWelcome,
		Params:  []string{"a", "b"},
	}
	m.WithTrailing("hello")

	m.Scrub()

	assert.Equal(t, "", m.Source)
	assert.Equal(t, "", m.Command)
	assert.Equal(t, uint16(0), m.Code)
	assert.Equal(t, 0, len(m.Params))
	assert.Equal(t, "", m.Trailing)
	assert.False(t, m.TrailingSet)
}

func TestMessageWithTrailing(t *testing.T) {
	m := &Message{Command: CmdNotice}
	ret := m.WithTrailing("hi")
	assert.Same(t, m, ret)
	assert.Equal(t, "hi", m.Trailing)
	assert.True(t, m.TrailingSet)
}
