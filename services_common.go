/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

// daysSince implements the NickServ/ChanServ INFO "registered N days ago"
// calculation shared by both services: floor((now-ts)/86400).
func daysSince(ts, now int64) int64 {
	if now < ts {
		return 0
	}
	return (now - ts) / 86400
}

// onOff renders a boolean as the on/off token used by NickServ's
// NOACCESS/NOOP/SHOWMAIL toggles.
func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
