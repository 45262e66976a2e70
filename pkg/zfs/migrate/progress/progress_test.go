// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCurrentRaisesTotalIfExceeded(t *testing.T) {
	var c Counters
	c.AddTotal(50)
	c.SetCurrent(100)
	require.Equal(t, int64(100), c.Current())
	require.Equal(t, int64(100), c.Total())
}

func TestSetCurrentLeavesTotalAlone(t *testing.T) {
	var c Counters
	c.AddTotal(200)
	c.SetCurrent(50)
	require.Equal(t, int64(50), c.Current())
	require.Equal(t, int64(200), c.Total())
}

func TestReset(t *testing.T) {
	var c Counters
	c.AddTotal(10)
	c.SetCurrent(5)
	c.Reset()
	require.Equal(t, int64(0), c.Current())
	require.Equal(t, int64(0), c.Total())
}
