// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"

// resolveResumability determines isFirstSync/continueLastSync from a
// MigrationTask's progress history, per spec.md §4.3 step 4: filter
// `sync`-phase entries excluding `warning` state; exactly one such entry
// means this is the first sync; otherwise inspect the second-to-last,
// and a non-`success` state there means the previous sync failed
// mid-stream, so set continueLastSync (the caller still must fetch a
// token and downgrade per downgradeResumability before trusting this).
func resolveResumability(history []types.ProgressPhase) (isFirstSync, continueLastSync bool) {
	var filtered []types.ProgressPhase
	for _, p := range history {
		if p.Phase == "sync" && p.State != types.StateWarning {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 1 {
		return true, false
	}
	if len(filtered) < 2 {
		// No recorded sync phase at all: treat as first sync.
		return true, false
	}
	secondToLast := filtered[len(filtered)-2]
	if secondToLast.State != types.StateSuccess {
		return false, true
	}
	return false, false
}

// downgradeResumability applies the boundary rule of spec.md §4.3 step 4
// and §8: an empty resume token fetched while continueLastSync is set
// downgrades to first-sync if the target has no snapshots at all,
// otherwise downgrades to a normal incremental sync.
func downgradeResumability(continueLastSync bool, token string, targetSnapshotNames []string) (isFirstSync, keepContinue bool) {
	if !continueLastSync {
		return false, false
	}
	if token != "" {
		return false, true
	}
	if len(targetSnapshotNames) == 0 {
		return true, false
	}
	return false, false
}
