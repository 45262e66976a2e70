// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/require"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.NewTag(logger.Config{LogLevel: "error"}, "watcher-test")
	require.NoError(t, err)
	return l
}

type captureSink struct {
	mu     sync.Mutex
	frames []wire.Frame
	fail   bool
	closed bool
}

func (s *captureSink) WriteFrame(f wire.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("write failed")
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *captureSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestWatcher(t *testing.T) (*Watcher, *progress.Counters, *atomic.Bool) {
	t.Helper()
	counters := &progress.Counters{}
	stopFlag := &atomic.Bool{}
	w, err := New(counters, stopFlag, testLogger(t))
	require.NoError(t, err)
	return w, counters, stopFlag
}

func TestTickOnceBroadcastsOnProgress(t *testing.T) {
	w, counters, _ := newTestWatcher(t)
	sink := &captureSink{}
	w.Subscribe(sink)

	counters.SetCurrent(10)
	w.tickOnce()

	require.Equal(t, 1, sink.count())
}

func TestTickOnceSkipsWhenNoProgressAndNotKeepAliveTick(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	sink := &captureSink{}
	w.Subscribe(sink)

	w.tickOnce()
	require.Equal(t, 0, sink.count())
}

func TestTickOnceForcesKeepAliveOnSixtiethTick(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	sink := &captureSink{}
	w.Subscribe(sink)

	for i := 0; i < keepAliveEvery; i++ {
		w.tickOnce()
	}
	require.Equal(t, 1, sink.count())
}

func TestTickOnceDropsFailingSubscriber(t *testing.T) {
	w, counters, _ := newTestWatcher(t)
	sink := &captureSink{fail: true}
	w.Subscribe(sink)

	counters.SetCurrent(5)
	w.tickOnce()

	w.mu.Lock()
	_, stillSubscribed := w.subs[sink]
	w.mu.Unlock()
	require.False(t, stillSubscribed)
}

func TestTickOnceEndsWatcherWhenStopFlagSet(t *testing.T) {
	w, _, stopFlag := newTestWatcher(t)
	sink := &captureSink{}
	w.Subscribe(sink)

	stopFlag.Store(true)
	w.tickOnce()

	w.mu.Lock()
	require.Empty(t, w.subs)
	w.mu.Unlock()
	require.True(t, sink.isClosed())
}

func TestEndClosesEverySubscriber(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	a := &captureSink{}
	b := &captureSink{}
	w.Subscribe(a)
	w.Subscribe(b)

	require.NoError(t, w.End())

	require.True(t, a.isClosed())
	require.True(t, b.isClosed())
	w.mu.Lock()
	defer w.mu.Unlock()
	require.Empty(t, w.subs)
}
