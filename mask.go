/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "strings"

// MatchMask reports whether source matches the IRC glob pattern, where
// '*' matches any run of characters (including none) and '?' matches
// exactly one. Matching is case-insensitive, per nick/hostmask convention.
//
// match("*", s) == true for all s; match("", "") == true; collapsing
// adjacent '*' in the pattern does not change the result.
func MatchMask(pattern, source string) bool {
	return matchGlob(strings.ToLower(pattern), strings.ToLower(source))
}

func matchGlob(pattern, source string) bool {
	var pIdx, sIdx int
	var starIdx = -1
	var matchIdx int

	for sIdx < len(source) {
		if pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == source[sIdx]) {
			pIdx++
			sIdx++
		} else if pIdx < len(pattern) && pattern[pIdx] == '*' {
			starIdx = pIdx
			matchIdx = sIdx
			pIdx++
		} else if starIdx != -1 {
			pIdx = starIdx + 1
			matchIdx++
			sIdx = matchIdx
		} else {
			return false
		}
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}

	return pIdx == len(pattern)
}

// maskWithoutTimestamp strips a trailing "|<timestamp>" suffix used by
// ban/exception list entries; only the mask portion participates in
// matching (§4.I Ban/exception matching, §8 idempotence law).
func maskWithoutTimestamp(entry string) string {
	if idx := strings.IndexByte(entry, '|'); idx != -1 {
		return entry[:idx]
	}
	return entry
}
