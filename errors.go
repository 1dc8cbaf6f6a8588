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

// Error is a workaround to allow for immutable error strings
// which satisfy the error interface.
type Error string

func (err Error) Error() string {
	return string(err)
}

func (err Error) String() string {
	return string(err)
}

// Framing/parse errors
const (
	ErrNotEnoughData Error = "did not receive enough data from the client"
	ErrDataTooLong   Error = "received data from the client is too long"
	ErrNoCommand     Error = "no command supplied"
	ErrBadSource     Error = "wrong source"
	ErrWhitespace    Error = "all whitespace"
)

// Registration/auth errors
const (
	ErrInvalidCapCmd    Error = "invalid CAP command"
	ErrMissingParams    Error = "missing parameters"
	ErrTooManyParams    Error = "too many parameters"
	ErrUserInUse        Error = "this username is currently in use"
	ErrUserAlreadySet   Error = "you have already registered"
	ErrNickInUse        Error = "this nickname is currently in use"
	ErrNickAlreadySet   Error = "you already have that nickname"
	ErrNotRegistered    Error = "you must register first"
	ErrNoNickGiven      Error = "no nickname given"
	ErrNoSuchNick       Error = "nick not found"
	ErrNoSuchChan       Error = "channel not found"
	ErrInsuffPerms      Error = "insufficient permissions"
	ErrUnknownMode      Error = "unknown mode"
	ErrInvalidModeArg   Error = "missing or invalid mode argument"
	ErrModeAlreadySet   Error = "mode already set"
	ErrModeNotSet       Error = "mode is not set"
	ErrUserMaskMismatch Error = "user mask doesn't match"
	ErrPasswdMismatch   Error = "password incorrect"
	ErrNickRegistered   Error = "nick is registered, password required"
	ErrNoOperHost       Error = "no O-lines for your host"
	ErrCannotSendToChan Error = "cannot send to channel"
)

// SASL errors
const (
	ErrSaslFail    Error = "SASL authentication failed"
	ErrSaslTooLong Error = "SASL message too long"
	ErrSaslAborted Error = "SASL authentication aborted"
	ErrSaslAlready Error = "you have already authenticated using SASL"
)

// Services/persistence errors
const (
	ErrNickNotRegistered   Error = "nick is not registered"
	ErrChanNotRegistered   Error = "channel is not registered"
	ErrBadPassword         Error = "password must be 6-32 printable ASCII characters"
	ErrBadEmail            Error = "malformed email address"
	ErrBadURL              Error = "malformed URL"
	ErrVHostRateLimited    Error = "vhost may only be changed once every 24 hours"
	ErrNotNickOwner        Error = "you are not identified for that nick"
	ErrNotChanFounder      Error = "you are not the founder of that channel"
	ErrAccessDenied        Error = "access level insufficient for that operation"
	ErrTargetNotRegistered Error = "that nick is not registered with NickServ"
	ErrNoAccessFlag        Error = "that nick has the NOACCESS flag set"
)

// Transport errors
const (
	ErrInputTooLong Error = "input line exceeds maximum length"
	ErrConnClosed   Error = "connection closed"
	ErrPongTimeout  Error = "pong timeout"
)
