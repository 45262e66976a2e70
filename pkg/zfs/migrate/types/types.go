// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package types holds the data model shared across the migration-sender
// packages: the immutable-per-sync MigrationTask, the VM topology it
// describes, and the migration-snapshot naming rules every other package
// relies on.
package types

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/stratastor/rodent-migrate-send/internal/constants"
)

// ProgressState is the state tag of one progress-history entry.
type ProgressState string

const (
	StateRunning ProgressState = "running"
	StateSuccess ProgressState = "success"
	StateWarning ProgressState = "warning"
)

// ProgressPhase is one past phase transition recorded against a VM, e.g.
// {Phase: "sync", State: "success"}.
type ProgressPhase struct {
	Phase string        `json:"phase" yaml:"phase"`
	State ProgressState `json:"state" yaml:"state"`
}

// Brand classifies the VM's disk topology: whether auxiliary disks are
// independent filesystem roots or children of the VM's root dataset.
type Brand string

const (
	BrandBHYVE Brand = "bhyve"
	BrandKVM   Brand = "kvm"
	BrandLX    Brand = "lx"
	BrandJoyent Brand = "joyent-minimal"
)

// IndependentDiskRoots reports whether this brand keeps auxiliary disks as
// peer dataset roots rather than as children of the VM's root dataset.
// KVM and BHYVE both back each virtual disk with its own zvol; LX/OS
// brands store disks as children beneath the single root (captured by
// recursive snapshot/send).
func (b Brand) IndependentDiskRoots() bool {
	switch b {
	case BrandKVM, BrandBHYVE:
		return true
	default:
		return false
	}
}

// Disk describes one auxiliary VM disk dataset.
type Disk struct {
	ZFSFilesystem string `json:"zfs_filesystem"`
}

// VM is the target description handed in with the MigrationTask: the root
// dataset, brand, and any auxiliary disks.
type VM struct {
	ZFSFilesystem string  `json:"zfs_filesystem"`
	Brand         Brand   `json:"brand"`
	Disks         []Disk  `json:"disks,omitempty"`
}

// MigrationTask is the immutable-for-the-duration-of-one-sync record
// created by the supervisor's `set-record`/`sync` command. NumSyncPhases
// is the one mutable field, advanced when a snapshot-name collision on the
// target forces the sender to skip forward.
type MigrationTask struct {
	mu sync.Mutex

	SourceVMID string `json:"source_vm_id" yaml:"source_vm_id"`
	TargetVMID string `json:"target_vm_id" yaml:"target_vm_id"`

	VM VM `json:"vm" yaml:"vm"`

	ProgressHistory []ProgressPhase `json:"progress_history" yaml:"progress_history"`
	NumSyncPhases   int             `json:"num_sync_phases" yaml:"num_sync_phases"`
}

// Datasets returns the VM's dataset list: the root dataset plus any
// auxiliary disks that sit on independent roots, all sorted together in
// lexical order of their names (per spec.md §4.4 - orchestrator
// processing order).
func (t *MigrationTask) Datasets() []string {
	names := []string{t.VM.ZFSFilesystem}
	if t.VM.Brand.IndependentDiskRoots() {
		for _, d := range t.VM.Disks {
			names = append(names, d.ZFSFilesystem)
		}
	}
	sort.Strings(names)
	return names
}

// SyncPhase returns the current num_sync_phases value.
func (t *MigrationTask) SyncPhase() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.NumSyncPhases
}

// AdvanceSyncPhase increments num_sync_phases by one, returning the new
// value. Called when the planned snapshot name already exists on the
// target (a collision forward-skip).
func (t *MigrationTask) AdvanceSyncPhase() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.NumSyncPhases++
	return t.NumSyncPhases
}

// SetSyncPhase forces num_sync_phases to a specific value.
func (t *MigrationTask) SetSyncPhase(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.NumSyncPhases = n
}

// TargetName applies the target-name mapping of spec.md §3: if source and
// target VM identifiers differ, the source identifier substring in name
// is replaced by the target identifier; otherwise name is returned
// unchanged.
func (t *MigrationTask) TargetName(name string) string {
	if t.SourceVMID == "" || t.SourceVMID == t.TargetVMID {
		return name
	}
	return strings.ReplaceAll(name, t.SourceVMID, t.TargetVMID)
}

// SnapshotName formats the short migration-snapshot name for sequence n.
func SnapshotName(n int) string {
	return constants.SnapshotPrefix + strconv.Itoa(n)
}

// ParseSnapshotSeq extracts the numeric sequence from a migration
// snapshot's short name. ok is false if shortName does not begin with the
// migration prefix or the remainder is not a positive integer.
func ParseSnapshotSeq(shortName string) (n int, ok bool) {
	if !strings.HasPrefix(shortName, constants.SnapshotPrefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(shortName, constants.SnapshotPrefix)
	v, err := strconv.Atoi(rest)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// SortSnapshotNames sorts migration-snapshot short names numerically by
// their embedded sequence number, not lexicographically (vm-migration-2
// sorts before vm-migration-10).
func SortSnapshotNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ni, oki := ParseSnapshotSeq(names[i])
		nj, okj := ParseSnapshotSeq(names[j])
		if oki && okj {
			return ni < nj
		}
		// Unparseable names (should not occur - callers filter first)
		// sort after parseable ones, lexically among themselves.
		if oki != okj {
			return oki
		}
		return names[i] < names[j]
	})
}

// ContainsSnapshot reports whether shortName is present in names.
func ContainsSnapshot(names []string, shortName string) bool {
	for _, n := range names {
		if n == shortName {
			return true
		}
	}
	return false
}
