// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the per-dataset sync pipeline: Stage A
// (Collect) and Stage B (Stream) of spec.md §4.3, and the state machine
// that governs one dataset's progress through them.
package pipeline

// State is one dataset's position in the pipeline state machine
// described in spec.md §4.3:
// Idle -> Collecting -> Snapshotted -> Estimated -> Ready -> Streaming ->
// Awaiting-Ack -> Done, with a Failed transition from any non-terminal
// state.
type State string

const (
	StateIdle         State = "idle"
	StateCollecting   State = "collecting"
	StateSnapshotted  State = "snapshotted"
	StateEstimated    State = "estimated"
	StateReady        State = "ready"
	StateStreaming    State = "streaming"
	StateAwaitingAck  State = "awaiting-ack"
	StateDone         State = "done"
	StateFailed       State = "failed"
)
