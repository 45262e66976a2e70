// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/require"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/link"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/pipeline"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.NewTag(logger.Config{LogLevel: "error"}, "orchestrator-test")
	require.NoError(t, err)
	return l
}

// TestStopReceiverIssuesStopOverAFreshLink proves spec.md §4.4's final
// teardown step is actually wired: a real stop request reaches a
// receiver over a link dialed solely for that purpose.
func TestStopReceiverIssuesStopOverAFreshLink(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)
		frame, err := r.ReadFrame()
		if err != nil {
			return
		}
		got <- frame.Command
		_ = w.WriteFrame(wire.NewResponse(frame.EventID, frame.Command, nil))
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	log := testLogger(t)
	o := &Orchestrator{
		Pipeline: &pipeline.Pipeline{Dial: func(ctx context.Context) (*link.Link, error) {
			return link.Dial(ctx, host, port, log)
		}},
		Counters: &progress.Counters{},
		Log:      log,
	}

	o.stopReceiver(context.Background())

	select {
	case cmd := <-got:
		require.Equal(t, "stop", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never saw a stop request")
	}
}

// TestStopReceiverSwallowsDialError proves a receiver that cannot be
// reached for the final stop does not propagate - the worker's own
// termination never depends on this teardown step succeeding.
func TestStopReceiverSwallowsDialError(t *testing.T) {
	o := &Orchestrator{
		Pipeline: &pipeline.Pipeline{Dial: func(ctx context.Context) (*link.Link, error) {
			return nil, errors.New("connection refused")
		}},
		Counters: &progress.Counters{},
		Log:      testLogger(t),
	}

	require.NotPanics(t, func() { o.stopReceiver(context.Background()) })
}
