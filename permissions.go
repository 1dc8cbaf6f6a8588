/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

// ChanAccessLevel is a ChanServ access-list grant level (§4.L VOP/HOP/AOP/SOP).
type ChanAccessLevel string

const (
	AccessVop ChanAccessLevel = "vop"
	AccessHop ChanAccessLevel = "hop"
	AccessAop ChanAccessLevel = "aop"
	AccessSop ChanAccessLevel = "sop"
)

// ChannelRole orders the per-membership hierarchy founder > protected >
// operator > half_operator > voice (§3 ChannelUserModes).
type ChannelRole uint8

const (
	RoleNone ChannelRole = iota
	RoleVoice
	RoleHalfOp
	RoleOperator
	RoleProtected
	RoleFounder
)

func (r ChannelRole) String() string {
	switch r {
	case RoleFounder:
		return "founder"
	case RoleProtected:
		return "protected"
	case RoleOperator:
		return "operator"
	case RoleHalfOp:
		return "half-operator"
	case RoleVoice:
		return "voice"
	default:
		return "none"
	}
}

// Prefix returns the NAMES/WHO membership-status character for the role,
// or 0 if the role carries none.
func (r ChannelRole) Prefix() byte {
	switch r {
	case RoleFounder:
		return '~'
	case RoleProtected:
		return '&'
	case RoleOperator:
		return '@'
	case RoleHalfOp:
		return '%'
	case RoleVoice:
		return '+'
	default:
		return 0
	}
}
