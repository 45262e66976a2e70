// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the worker's control-plane TCP listener of
// spec.md §4.5: a supervisor-facing newline-delimited JSON protocol
// dispatching `ping`/`set-record`/`sync`/`watch`/`stop`/`end`.
package control

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/internal/constants"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/orchestrator"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/pipeline"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/sendrecv"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/watcher"
)

// PipelineFactory builds a fresh Pipeline for one sync command, bound to
// the receiver host/port carried in the `sync` request's fields.
type PipelineFactory func(host string, port int, task *types.MigrationTask, counters *progress.Counters, stopFlag *atomic.Bool, log logger.Logger) *pipeline.Pipeline

// Server is the control-plane TCP listener. One Server exists per worker
// process, created at bootstrap and bound to port 0.
type Server struct {
	listener net.Listener

	adapter     *sendrecv.Adapter
	newPipeline PipelineFactory

	log logger.Logger

	mu   sync.Mutex
	task *types.MigrationTask

	counters *progress.Counters
	stopFlag *atomic.Bool
	watch    *watcher.Watcher

	syncRunning atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// New binds a listener on the loopback management interface at port 0
// and returns a Server ready to Accept.
func New(adapter *sendrecv.Adapter, newPipeline PipelineFactory, log logger.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:    ln,
		adapter:     adapter,
		newPipeline: newPipeline,
		log:         log,
		counters:    &progress.Counters{},
		stopFlag:    &atomic.Bool{},
		done:        make(chan struct{}),
	}, nil
}

// Addr returns the bound TCP address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// SetTask installs the in-memory MigrationTask, replacing any previous
// record (the `set-record` command).
func (s *Server) SetTask(task *types.MigrationTask) {
	s.mu.Lock()
	s.task = task
	s.mu.Unlock()
}

// StopFlag exposes the process-wide stop flag, shared with the pipeline
// and watcher so every suspension point can observe a `stop`/`end`
// command (spec.md §5).
func (s *Server) StopFlag() *atomic.Bool { return s.stopFlag }

// Counters exposes the shared progress counters, read by the diagnostic
// status endpoint.
func (s *Server) Counters() *progress.Counters { return s.counters }

func (s *Server) currentTask() *types.MigrationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Serve accepts connections until the listener is closed (by Stop, or by
// the terminal teardown after a sync command completes).
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			return err
		}
		c := newConnection(s, conn)
		go c.run(ctx)
	}
}

// Stop closes the listener, unblocking Serve. Safe to call more than
// once and from any goroutine (watcher tick, a `stop`/`end` command, or
// the terminal teardown after `sync`).
func (s *Server) Stop() {
	s.closeOnce.Do(func() {
		s.stopFlag.Store(true)
		close(s.done)
		if s.watch != nil {
			_ = s.watch.End()
		}
		_ = s.listener.Close()
	})
}

func (s *Server) watcherFor(log logger.Logger) *watcher.Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watch == nil {
		w, err := watcher.New(s.counters, s.stopFlag, log)
		if err != nil {
			// gocron scheduler construction failing is effectively fatal
			// to the watcher; log and fall back to an unsubscribed no-op
			// by leaving s.watch nil - callers tolerate a nil watcher as
			// "no broadcast available this run".
			log.Error("progress watcher init failed", "err", err)
			return nil
		}
		if err := w.Start(); err != nil {
			log.Error("progress watcher start failed", "err", err)
			return nil
		}
		s.watch = w
	}
	return s.watch
}

// runSync runs the orchestrator for the current task against the given
// receiver host/port, reporting progress to subs and returning the
// terminal orchestrator.Result. Only one sync may be in flight at a
// time; a concurrent request fails fast rather than interleaving with
// the running one.
func (s *Server) runSync(ctx context.Context, host string, port int) orchestrator.Result {
	if !s.syncRunning.CompareAndSwap(false, true) {
		return orchestrator.Result{Err: errAlreadySyncing}
	}
	defer s.syncRunning.Store(false)

	task := s.currentTask()
	p := s.newPipeline(host, port, task, s.counters, s.stopFlag, s.log)
	o := &orchestrator.Orchestrator{
		Pipeline: p,
		Task:     task,
		Counters: s.counters,
		Log:      s.log,
	}
	return o.Run(ctx)
}

var errAlreadySyncing = errors.New("sync already in progress")

func pid() int { return os.Getpid() }

var rodentVersion = constants.Version
