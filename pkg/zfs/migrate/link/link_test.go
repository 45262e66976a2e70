// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/require"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.NewTag(logger.Config{LogLevel: "error"}, "link-test")
	require.NoError(t, err)
	return l
}

// fakeReceiver is a minimal stand-in for the receiver agent's control
// side: it replies to one request at a time over conn, reading/writing
// raw wire.Frame lines.
type fakeReceiver struct {
	conn net.Conn
	r    *wire.Reader
	w    *wire.Writer
}

func newFakeReceiver(conn net.Conn) *fakeReceiver {
	return &fakeReceiver{conn: conn, r: wire.NewReader(conn), w: wire.NewWriter(conn)}
}

func (f *fakeReceiver) expectAndReply(command string, fields map[string]any) (wire.Frame, error) {
	req, err := f.r.ReadFrame()
	if err != nil {
		return wire.Frame{}, err
	}
	return req, f.w.WriteFrame(wire.NewResponse(req.EventID, command, fields))
}

func TestGetSnapshotNames(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	l := newLink(client, testLogger(t))
	fr := newFakeReceiver(server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fr.expectAndReply("get-zfs-snapshot-names", map[string]any{
			"names": []any{"vm-migration-1", "vm-migration-2"},
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	names, err := l.GetSnapshotNames(ctx, "zones/vm1")
	require.NoError(t, err)
	require.Equal(t, []string{"vm-migration-1", "vm-migration-2"}, names)
	<-done
}

func TestGetSnapshotNamesTreatsNonArrayAsEmpty(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	l := newLink(client, testLogger(t))
	fr := newFakeReceiver(server)

	go func() { _, _ = fr.expectAndReply("get-zfs-snapshot-names", map[string]any{"names": "oops"}) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	names, err := l.GetSnapshotNames(ctx, "zones/vm1")
	require.NoError(t, err)
	require.Nil(t, names)
}

func TestGetResumeToken(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	l := newLink(client, testLogger(t))
	fr := newFakeReceiver(server)

	go func() { _, _ = fr.expectAndReply("get-zfs-resume-token", map[string]any{"token": "resume-xyz"}) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tok, err := l.GetResumeToken(ctx, "zones/vm1")
	require.NoError(t, err)
	require.Equal(t, "resume-xyz", tok)
}

func TestTeardownFiresSyntheticErrorWithoutSyncSuccess(t *testing.T) {
	client, server := net.Pipe()

	l := newLink(client, testLogger(t))
	errCh := l.SetErrorSink()

	// Receiver hangs up without ever sending sync-success.
	require.NoError(t, server.Close())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected synthetic error on ungraceful close")
	}
}

func TestStopSendsStopRequestAndWaitsForResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	l := newLink(client, testLogger(t))
	fr := newFakeReceiver(server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fr.expectAndReply("stop", nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))
	<-done
}

func TestTouchExtendsReadDeadlineWithoutError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	l := newLink(client, testLogger(t))
	require.NotPanics(t, l.Touch)
}

func TestCloseSuppressesSyntheticError(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	l := newLink(client, testLogger(t))
	errCh := l.SetErrorSink()

	require.NoError(t, l.Close())

	select {
	case err := <-errCh:
		t.Fatalf("expected no synthetic error after explicit Close, got %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}
