/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import "strings"

// CanonicalName case-folds a nick or channel name to its lookup key per
// the advertised CASEMAPPING=ascii token (§3, §4.E): plain ASCII
// lowercasing, no Unicode-aware folding. Original casing is preserved
// on the value for display; only the map key is folded.
func CanonicalName(name string) string {
	return strings.ToLower(name)
}
