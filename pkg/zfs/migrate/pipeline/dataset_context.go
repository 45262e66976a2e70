// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// DatasetContext is the per-dataset working state built during a sync
// run, per spec.md §3. It is created at the start of Collect and lives
// until Stream terminates.
type DatasetContext struct {
	ZFSFilesystem string

	// SourceSnapshotNames is the ordered (numeric-ascending) list of
	// existing source migration snapshots.
	SourceSnapshotNames []string
	// TargetSnapshotNames is the receiver-reported list for the
	// corresponding target dataset.
	TargetSnapshotNames []string

	IsFirstSync      bool
	ContinueLastSync bool
	Token            string

	PrevSnapshotName string
	SnapshotName     string

	EstimatedSize int64

	// EndedSuccessfully distinguishes a graceful stage end from a
	// dropped connection; consulted on teardown.
	EndedSuccessfully bool

	State State
}
