/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"sort"
	"sync"
)

// commandCounters backs the STATS m numeric (§4.K supplemented feature):
// a per-command invocation count, guarded by its own lock since it is
// touched on every single dispatched message regardless of GlobalState.
var commandCounters = struct {
	sync.Mutex
	counts map[string]uint64
}{counts: make(map[string]uint64)}

// countCommand increments cmd's invocation counter. Called once per
// dispatched message from Dispatch, before registration/routing checks,
// so it reflects attempted commands rather than only successful ones.
func countCommand(cmd string) {
	commandCounters.Lock()
	commandCounters.counts[cmd]++
	commandCounters.Unlock()
	commandsTotal.WithLabelValues(cmd).Inc()
}

// CommandCount is a single STATS m row.
type CommandCount struct {
	Command string
	Count   uint64
}

// CommandCounts returns every counted command, sorted by command name,
// for rendering as STATS m replies.
func CommandCounts() []CommandCount {
	commandCounters.Lock()
	defer commandCounters.Unlock()

	out := make([]CommandCount, 0, len(commandCounters.counts))
	for cmd, n := range commandCounters.counts {
		out = append(out, CommandCount{Command: cmd, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}
