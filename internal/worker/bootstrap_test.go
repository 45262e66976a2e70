// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunWithRepliesReadyAndBindsControlServer(t *testing.T) {
	startup := map[string]any{
		"req_id": "r1",
		"uuid":   "u1",
		"payload": map[string]any{
			"migrationTask": map[string]any{
				"action": "sync",
				"record": map[string]any{
					"source_vm_id": "vm-1",
					"target_vm_id": "vm-2",
					"vm":           map[string]any{"zfs_filesystem": "zones/vm1", "brand": "kvm"},
				},
			},
			"vm": map[string]any{"zfs_filesystem": "zones/vm1", "brand": "kvm"},
		},
	}
	line, err := json.Marshal(startup)
	require.NoError(t, err)

	in := bytes.NewBuffer(append(line, '\n'))
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	w := New()

	done := make(chan error, 1)
	go func() { done <- RunWith(ctx, in, &out, w) }()

	// The worker blocks in ctrl.Serve until stopped; give the handshake
	// time to write its ReadyReply, then tear the control server down.
	require.Eventually(t, func() bool {
		return out.Len() > 0
	}, 2*time.Second, 10*time.Millisecond)

	var reply ReadyReply
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &reply))
	require.Equal(t, "127.0.0.1", reply.Host)
	require.NotZero(t, reply.Port)

	w.control.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunWith did not return after control server stop")
	}
	cancel()
}

func TestRunWithFailsOnEmptyInput(t *testing.T) {
	in := bytes.NewBuffer(nil)
	var out bytes.Buffer

	err := RunWith(context.Background(), in, &out, New())
	require.Error(t, err)

	var errReply ErrorReply
	require.NoError(t, json.Unmarshal(out.Bytes(), &errReply))
	require.NotEmpty(t, errReply.Error.Message)
}
