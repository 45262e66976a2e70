// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

func TestResolveResumabilityNoHistory(t *testing.T) {
	isFirst, cont := resolveResumability(nil)
	require.True(t, isFirst)
	require.False(t, cont)
}

func TestResolveResumabilityOneSyncPhase(t *testing.T) {
	history := []types.ProgressPhase{{Phase: "sync", State: types.StateSuccess}}
	isFirst, cont := resolveResumability(history)
	require.True(t, isFirst)
	require.False(t, cont)
}

func TestResolveResumabilityPriorFailureSetsContinue(t *testing.T) {
	history := []types.ProgressPhase{
		{Phase: "sync", State: types.StateRunning},
		{Phase: "sync", State: types.StateSuccess},
	}
	isFirst, cont := resolveResumability(history)
	require.False(t, isFirst)
	require.True(t, cont)
}

func TestResolveResumabilityPriorSuccessIsPlainIncremental(t *testing.T) {
	history := []types.ProgressPhase{
		{Phase: "sync", State: types.StateSuccess},
		{Phase: "sync", State: types.StateSuccess},
	}
	isFirst, cont := resolveResumability(history)
	require.False(t, isFirst)
	require.False(t, cont)
}

func TestResolveResumabilityIgnoresWarningEntries(t *testing.T) {
	history := []types.ProgressPhase{
		{Phase: "sync", State: types.StateWarning},
		{Phase: "sync", State: types.StateSuccess},
	}
	isFirst, cont := resolveResumability(history)
	require.True(t, isFirst)
	require.False(t, cont)
}

func TestDowngradeResumabilityNotContinuing(t *testing.T) {
	isFirst, keep := downgradeResumability(false, "", nil)
	require.False(t, isFirst)
	require.False(t, keep)
}

func TestDowngradeResumabilityTokenPresent(t *testing.T) {
	isFirst, keep := downgradeResumability(true, "tok", nil)
	require.False(t, isFirst)
	require.True(t, keep)
}

func TestDowngradeResumabilityEmptyTokenNoTargetSnapshots(t *testing.T) {
	isFirst, keep := downgradeResumability(true, "", nil)
	require.True(t, isFirst)
	require.False(t, keep)
}

func TestDowngradeResumabilityEmptyTokenWithTargetSnapshots(t *testing.T) {
	isFirst, keep := downgradeResumability(true, "", []string{"vm-migration-1"})
	require.False(t, isFirst)
	require.False(t, keep)
}
