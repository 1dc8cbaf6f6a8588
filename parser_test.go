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

func TestParser(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
		expectNil   bool
	}{
		{
			name:        "valid message with trailing",
			input:       "PRIVMSG #channel :I am the client",
			expectedErr: nil,
		},
		{
			name:        "valid message without trailing",
			input:       "JOIN #channel",
			expectedErr: nil,
		},
		{
			name:        "source-prefixed message",
			input:       ":nick1!someuser@irc.somehost.org PRIVMSG #channel :hi",
			expectedErr: nil,
		},
		{
			name:        "empty source is rejected",
			input:       ": PRIVMSG #channel :hi",
			expectedErr: ErrBadSource,
		},
		{
			name:        "blank line is silently ignored",
			input:       "   \r\n",
			expectNil:   true,
		},
		{
			name:        "too many parameters",
			input:       "PRIVMSG 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16",
			expectedErr: ErrTooManyParams,
		},
		{
			name:        "line over MaxLineLength",
			input:       strings.Repeat("a", MaxLineLength+1),
			expectedErr: ErrDataTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.input)
			assert.Equal(t, tt.expectedErr, err)
			if tt.expectNil {
				assert.Nil(t, msg)
			}
		})
	}
}

func TestParserCommandUppercased(t *testing.T) {
	msg, err := Parse("privmsg #channel :hi")
	assert.NoError(t, err)
	assert.Equal(t, "PRIVMSG", msg.Command)
}

func TestParserLeadingColonIsAlwaysSource(t *testing.T) {
	// A leading ':' always starts the source token, even with no further
	// trailing parameter on the line.
	msg, err := Parse(":nick1 PING")
	assert.NoError(t, err)
	assert.Equal(t, "nick1", msg.Source)
	assert.Equal(t, "PING", msg.Command)
	assert.Equal(t, 0, len(msg.Params))
}
