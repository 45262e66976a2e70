// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package progress holds the two shared progress counters
// (currentProgress, totalProgress) described in spec.md §5 as
// "Shared mutable state": written from the orchestrator's serial phases
// and from the stream stage's periodic tick, read without locking by the
// progress watcher's broadcast - backed here by atomic int64s per the
// spec's threaded-implementation requirement.
package progress

import "sync/atomic"

// Counters is the single live sync's progress state, owned by the
// Worker aggregate and shared by the pipeline, orchestrator, and
// watcher.
type Counters struct {
	current atomic.Int64
	total   atomic.Int64
}

// AddTotal raises totalProgress by n, used once per dataset after Collect
// estimates its send size (spec.md §4.3, "After collect runs for every
// dataset, sum estimates into totalProgress").
func (c *Counters) AddTotal(n int64) {
	c.total.Add(n)
}

// SetCurrent sets currentProgress, re-establishing currentProgress <=
// totalProgress by raising totalProgress if current now exceeds it
// (spec.md §3 invariant, §4.3 step 4).
func (c *Counters) SetCurrent(n int64) {
	c.current.Store(n)
	for {
		total := c.total.Load()
		if n <= total {
			return
		}
		if c.total.CompareAndSwap(total, n) {
			return
		}
	}
}

// Current returns currentProgress.
func (c *Counters) Current() int64 { return c.current.Load() }

// Total returns totalProgress.
func (c *Counters) Total() int64 { return c.total.Load() }

// Reset zeroes both counters, at the start of a new sync command.
func (c *Counters) Reset() {
	c.current.Store(0)
	c.total.Store(0)
}
