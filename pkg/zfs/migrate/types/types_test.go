// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatasetsOrdering(t *testing.T) {
	task := &MigrationTask{
		VM: VM{
			ZFSFilesystem: "zones/vm2",
			Brand:         BrandKVM,
			Disks: []Disk{
				{ZFSFilesystem: "zones/vm2-disk0"},
				{ZFSFilesystem: "zones/vm2-disk1"},
			},
		},
	}
	require.Equal(t, []string{"zones/vm2", "zones/vm2-disk0", "zones/vm2-disk1"}, task.Datasets())
}

func TestDatasetsIgnoresDisksForNonIndependentBrand(t *testing.T) {
	task := &MigrationTask{
		VM: VM{
			ZFSFilesystem: "zones/vm3",
			Brand:         BrandLX,
			Disks:         []Disk{{ZFSFilesystem: "zones/vm3-disk0"}},
		},
	}
	require.Equal(t, []string{"zones/vm3"}, task.Datasets())
}

func TestAdvanceSyncPhase(t *testing.T) {
	task := &MigrationTask{}
	require.Equal(t, 0, task.SyncPhase())
	require.Equal(t, 1, task.AdvanceSyncPhase())
	require.Equal(t, 2, task.AdvanceSyncPhase())
	require.Equal(t, 2, task.SyncPhase())
}

func TestTargetNameSubstitution(t *testing.T) {
	task := &MigrationTask{SourceVMID: "src-1", TargetVMID: "dst-2"}
	require.Equal(t, "zones/dst-2", task.TargetName("zones/src-1"))

	sameID := &MigrationTask{SourceVMID: "same", TargetVMID: "same"}
	require.Equal(t, "zones/same", sameID.TargetName("zones/same"))
}

func TestSnapshotNameRoundTrip(t *testing.T) {
	name := SnapshotName(7)
	n, ok := ParseSnapshotSeq(name)
	require.True(t, ok)
	require.Equal(t, 7, n)
}

func TestParseSnapshotSeqRejectsNonMigrationNames(t *testing.T) {
	_, ok := ParseSnapshotSeq("zfs-auto-snap_daily-2024")
	require.False(t, ok)

	_, ok = ParseSnapshotSeq("vm-migration-0")
	require.False(t, ok, "sequence must be positive")

	_, ok = ParseSnapshotSeq("vm-migration-abc")
	require.False(t, ok)
}

func TestSortSnapshotNamesIsNumericNotLexical(t *testing.T) {
	names := []string{"vm-migration-10", "vm-migration-2", "vm-migration-1"}
	SortSnapshotNames(names)
	require.Equal(t, []string{"vm-migration-1", "vm-migration-2", "vm-migration-10"}, names)
}

func TestContainsSnapshot(t *testing.T) {
	names := []string{"vm-migration-1", "vm-migration-2"}
	require.True(t, ContainsSnapshot(names, "vm-migration-2"))
	require.False(t, ContainsSnapshot(names, "vm-migration-3"))
}
