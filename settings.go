/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "time"

// Limiter constants, sized to match the ISUPPORT tokens advertised in 005.
const (
	MaxLineLength  = 2000
	MaxMsgParams   = 15
	MaxTagsLength  = 4096

	MaxChanLength  = 1000
	MaxKickLength  = 1000
	MaxTopicLength = 1000
	MaxListItems   = 1000
	MaxModeChange  = 6
	MaxTargets     = 500

	MaxNickLength  = 200
	MaxUserLength  = 200
	MaxHostLength  = 1000
	MaxVHostLength = 1000
	MaxJoinedChans = 120
	MaxAwayLength  = 1000
	MaxKeyLength   = 1000

	// ChannelPrefixes lists the recognized channel-name sigils (CHANTYPES).
	ChannelPrefixes = "&#"

	UserhostChunkSize = 20

	MaxSaslDatumLength = 400

	VHostChangeCooldown = 24 * time.Hour

	TLSHandshakeTimeout = 10 * time.Second

	// DefaultNickHistoryDepth bounds retention per nick (§9 open question:
	// the source keeps this unbounded; this implementation keeps the last
	// N entries per nick so memory use stays flat under churn).
	DefaultNickHistoryDepth = 10
)

// DefaultPingTimeout/DefaultPongTimeout are the waker/timeout durations
// used when a listener's configuration omits them.
const (
	DefaultPingTimeout = 120 * time.Second
	DefaultPongTimeout = 20 * time.Second
)

// KeepAliveTimeout/WriteTimeout bound the underlying TCP socket.
const (
	KeepAliveTimeout = 2 * time.Minute
	WriteTimeout     = 5 * time.Second
)

// WriteQueueLength sizes each connection's outbound mailbox (§4.D).
const WriteQueueLength = 64
