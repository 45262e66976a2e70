// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package watcher implements the progress-broadcast singleton of
// spec.md §4.6: a one-second tick broadcasting progress frames to every
// control socket subscribed via `sync`/`watch`.
package watcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

// keepAliveEvery forces a broadcast on every 60th tick even when
// progress has not advanced, per spec.md §4.6 / §8's "at least one
// event every 60 seconds" invariant.
const keepAliveEvery = 60

// Sink is the subscriber-facing half of a control connection: a write
// method and a teardown method, so the watcher can destroy a subscribed
// socket on End without knowing about net.Conn or the per-connection
// line writer.
type Sink interface {
	WriteFrame(wire.Frame) error
	Close() error
}

// Watcher is the singleton progress broadcaster created on first `sync`
// or `watch`. One Watcher instance is shared by the whole worker process.
type Watcher struct {
	counters *progress.Counters
	stopFlag *atomic.Bool
	log      logger.Logger

	mu    sync.Mutex
	subs  map[Sink]struct{}
	tick  int
	last  int64

	scheduler gocron.Scheduler
	job       gocron.Job
}

// New creates a Watcher bound to counters and the process-wide stop
// flag. The caller starts it with Start.
func New(counters *progress.Counters, stopFlag *atomic.Bool, log logger.Logger) (*Watcher, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		counters:  counters,
		stopFlag:  stopFlag,
		log:       log,
		subs:      make(map[Sink]struct{}),
		scheduler: sched,
	}, nil
}

// Subscribe adds s to the broadcast set.
func (w *Watcher) Subscribe(s Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs[s] = struct{}{}
}

// Unsubscribe removes s, e.g. on its connection closing.
func (w *Watcher) Unsubscribe(s Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs, s)
}

// Start schedules the one-second tick job. Calling Start twice is a
// no-op after the first call.
func (w *Watcher) Start() error {
	if w.job != nil {
		return nil
	}
	job, err := w.scheduler.NewJob(
		gocron.DurationJob(1*time.Second),
		gocron.NewTask(w.tickOnce),
	)
	if err != nil {
		return err
	}
	w.job = job
	w.scheduler.Start()
	return nil
}

func (w *Watcher) tickOnce() {
	if w.stopFlag.Load() {
		_ = w.End()
		return
	}

	w.mu.Lock()
	w.tick++
	forceKeepAlive := w.tick%keepAliveEvery == 0
	current := w.counters.Current()
	advanced := current != w.last
	w.last = current
	total := w.counters.Total()
	subs := make([]Sink, 0, len(w.subs))
	for s := range w.subs {
		subs = append(subs, s)
	}
	w.mu.Unlock()

	if !advanced && !forceKeepAlive {
		return
	}

	frame := wire.NewProgress("sync", "running", current, total, forceKeepAlive)
	for _, s := range subs {
		if err := s.WriteFrame(frame); err != nil {
			w.log.Warn("progress broadcast failed, dropping subscriber", "err", err)
			w.Unsubscribe(s)
		}
	}
}

// End cancels the periodic tick and destroys every subscribed socket
// (spec.md §4.6). Safe to call more than once.
func (w *Watcher) End() error {
	w.mu.Lock()
	subs := w.subs
	w.subs = make(map[Sink]struct{})
	w.mu.Unlock()

	for s := range subs {
		if err := s.Close(); err != nil {
			w.log.Warn("watcher: closing subscriber failed", "err", err)
		}
	}

	return w.scheduler.Shutdown()
}
