/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// CloakKeys holds the three opaque keys and host-prefix string used by
// the cloaking function (§4.F). Immutable once loaded from configuration.
type CloakKeys struct {
	K1     string
	K2     string
	K3     string
	Prefix string
}

// downsample XOR-folds a 32-byte SHA-256 digest into a single uint32,
// r_i = XOR of h[8i..8i+8), packed big-endian.
func downsample(h [32]byte) uint32 {
	var r [4]byte
	for i := 0; i < 4; i++ {
		var x byte
		for j := 0; j < 8; j++ {
			x ^= h[i*8+j]
		}
		r[i] = x
	}
	return uint32(r[0])<<24 | uint32(r[1])<<16 | uint32(r[2])<<8 | uint32(r[3])
}

func hashOf(parts ...string) [32]byte {
	return sha256.Sum256([]byte(strings.Join(parts, "")))
}

func doubleHash(inner string, key string) [32]byte {
	innerSum := sha256.Sum256([]byte(inner))
	return sha256.Sum256(append(innerSum[:], key...))
}

// Cloak computes the deterministic pseudonymous identifier for a given
// raw host/address string. Classification: four dot-separated,
// octet-parseable segments => IPv4; contains ':' => IPv6; otherwise a
// hostname. Pure and deterministic: identical (keys, host) always
// produces the same string across runs (§8 round-trip laws).
func Cloak(keys CloakKeys, host string) string {
	if segs := strings.Split(host, "."); len(segs) == 4 && isIPv4Segments(segs) {
		return cloakIPv4(keys, segs)
	}
	if strings.Contains(host, ":") {
		return cloakIPv6(keys, host)
	}
	return cloakHostname(keys, host)
}

func isIPv4Segments(segs []string) bool {
	for _, s := range segs {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

func cloakIPv4(keys CloakKeys, segs []string) string {
	a, b, c, _ := segs[0], segs[1], segs[2], segs[3]
	ip := strings.Join(segs, ".")

	alpha := downsample(doubleHash(keys.K2+":"+ip+":"+keys.K3, keys.K1))
	beta := downsample(doubleHash(keys.K3+":"+a+"."+b+"."+c+":"+keys.K1, keys.K2))
	gamma := downsample(doubleHash(keys.K1+":"+a+"."+b+":"+keys.K2, keys.K3))

	return fmt.Sprintf("%X.%X.%X.IPv4", alpha, beta, gamma)
}

func cloakIPv6(keys CloakKeys, host string) string {
	groups := expandIPv6Groups(host)
	full := strings.Join(groups, ":")
	first4 := strings.Join(groups[:4], ":")
	all8 := full

	alpha := downsample(doubleHash(keys.K2+":"+full+":"+keys.K3, keys.K1))
	beta := downsample(doubleHash(keys.K3+":"+all8+":"+keys.K1, keys.K2))
	gamma := downsample(doubleHash(keys.K1+":"+first4+":"+keys.K2, keys.K3))

	return fmt.Sprintf("%X:%X:%X:IPv6", alpha, beta, gamma)
}

// expandIPv6Groups zero-pads an IPv6 address string to eight ':'-separated
// groups, expanding a single "::" contraction if present.
func expandIPv6Groups(host string) []string {
	if idx := strings.Index(host, "::"); idx != -1 {
		left := strings.Split(strings.Trim(host[:idx], ":"), ":")
		right := strings.Split(strings.Trim(host[idx+2:], ":"), ":")
		if len(left) == 1 && left[0] == "" {
			left = nil
		}
		if len(right) == 1 && right[0] == "" {
			right = nil
		}
		missing := 8 - len(left) - len(right)
		groups := make([]string, 0, 8)
		groups = append(groups, left...)
		for i := 0; i < missing; i++ {
			groups = append(groups, "0")
		}
		groups = append(groups, right...)
		return padGroups(groups)
	}
	return padGroups(strings.Split(host, ":"))
}

func padGroups(groups []string) []string {
	out := make([]string, 8)
	for i := 0; i < 8; i++ {
		if i < len(groups) && groups[i] != "" {
			out[i] = groups[i]
		} else {
			out[i] = "0"
		}
	}
	return out
}

func cloakHostname(keys CloakKeys, host string) string {
	first := doubleHash(keys.K1+":"+host+":"+keys.K2, keys.K3)
	alpha := downsample(first)

	if idx := strings.IndexByte(host, '.'); idx != -1 {
		return fmt.Sprintf("%s-%X.%s", keys.Prefix, alpha, host[idx+1:])
	}
	return fmt.Sprintf("%s-%X", keys.Prefix, alpha)
}
