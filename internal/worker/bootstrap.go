// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/config"
	"github.com/stratastor/rodent-migrate-send/pkg/errors"
	"github.com/stratastor/rodent-migrate-send/pkg/server"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/command"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/control"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/orchestrator"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/pipeline"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/sendrecv"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

// AdminIPResolver resolves the local management IP the control listener
// is reported against. Actual discovery is out of scope (spec.md §1);
// this is the injection seam a real deployment wires in.
type AdminIPResolver interface {
	ResolveAdminIP(ctx context.Context) (string, error)
}

// LoopbackResolver is the default AdminIPResolver: it reports the
// loopback address, suitable for local/dev runs and tests.
type LoopbackResolver struct{}

func (LoopbackResolver) ResolveAdminIP(ctx context.Context) (string, error) {
	return "127.0.0.1", nil
}

// Worker is the top-level aggregate created at bootstrap: the in-memory
// MigrationTask, shared progress counters, process-wide stop flag,
// control server, and watcher are all reached through it (spec.md §9's
// "mutable module-level state maps to fields of a single Worker
// aggregate").
type Worker struct {
	log      logger.Logger
	ring     *ringLog
	resolver AdminIPResolver

	control  *control.Server
	counters *progress.Counters
	stopFlag *atomic.Bool
}

// New returns a Worker with no task bound yet. It implements
// server.StatusProvider immediately (before RunWith completes its
// handshake) so the diagnostic HTTP server can be started concurrently
// with the stdin/stdout handshake.
func New() *Worker {
	return &Worker{counters: &progress.Counters{}}
}

// MigrationStatus implements server.StatusProvider for the loopback
// debug HTTP endpoint.
func (w *Worker) MigrationStatus() server.MigrationStatus {
	if w.counters == nil {
		return server.MigrationStatus{}
	}
	return server.MigrationStatus{
		CurrentProgress: w.counters.Current(),
		TotalProgress:   w.counters.Total(),
	}
}

// RunWith executes the full bootstrap sequence of spec.md §4.7 against
// an existing Worker (see New): read the startup message from in, reply
// on out, bind the control server, and serve until it stops. Blocks
// until the control listener closes.
func RunWith(ctx context.Context, in io.Reader, out io.Writer, w *Worker) error {
	cfg := config.GetConfig()

	logPath := resolveLogPath()
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "migrate-send")
	if err != nil {
		return writeError(out, fmt.Errorf("init logger: %w", err))
	}
	l.Info("worker starting", "logPath", logPath)

	ring := newRingLog()
	defer func() {
		if r := recover(); r != nil {
			l.Error("worker panicked", "recover", r, "stack", string(debug.Stack()))
			for _, line := range ring.Snapshot() {
				l.Debug("ring log", "line", line)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		return writeError(out, fmt.Errorf("no startup message received"))
	}
	msg, err := decodeStartupMessage(scanner.Bytes())
	if err != nil {
		return writeError(out, errors.NewSetupError("malformed startup message: "+err.Error()))
	}
	ring.Add(fmt.Sprintf("startup req_id=%s uuid=%s action=%s", msg.ReqID, msg.UUID, msg.Payload.MigrationTask.Action))

	w.log = l
	w.ring = ring
	if w.resolver == nil {
		w.resolver = LoopbackResolver{}
	}
	if w.counters == nil {
		w.counters = &progress.Counters{}
	}

	task := &msg.Payload.MigrationTask.Record
	task.VM = msg.Payload.VM

	adapter := sendrecv.NewAdapter(command.NewCommandExecutor(true, config.NewLoggerConfig(cfg)))

	newPipeline := func(host string, port int, t *types.MigrationTask, counters *progress.Counters, stopFlag *atomic.Bool, log logger.Logger) *pipeline.Pipeline {
		return &pipeline.Pipeline{
			Adapter:             adapter,
			Dial:                orchestrator.DialerFor(host, port, log),
			Task:                t,
			Counters:            counters,
			Log:                 log,
			StopFlag:            stopFlag,
			ThrottleBytesPerSec: cfg.Migrate.ThrottleBytesPerSec,
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(msg.TimeoutOrDefault())*time.Second)
	adminIP, err := w.resolver.ResolveAdminIP(timeoutCtx)
	cancel()
	if err != nil {
		return writeError(out, errors.NewSetupError("admin ip resolution failed: "+err.Error()))
	}

	ctrl, err := control.New(adapter, newPipeline, l)
	if err != nil {
		return writeError(out, errors.NewSetupError("control listener bind failed: "+err.Error()))
	}
	ctrl.SetTask(task)
	w.control = ctrl
	w.stopFlag = ctrl.StopFlag()
	w.counters = ctrl.Counters()

	port := 0
	if tcp, ok := ctrl.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	if err := writeReady(out, ReadyReply{Host: adminIP, Pid: os.Getpid(), Port: port}); err != nil {
		return err
	}

	return ctrl.Serve(ctx)
}

func resolveLogPath() string {
	dir := os.Getenv("logdir")
	if dir == "" {
		dir = config.GetLogsDir()
	}
	name := "rodent-migrate-send.log"
	if os.Getenv("logtimestamp") != "" {
		name = fmt.Sprintf("rodent-migrate-send-%s.log", os.Getenv("logtimestamp"))
	}
	return filepath.Join(dir, name)
}

func writeReady(out io.Writer, reply ReadyReply) error {
	return json.NewEncoder(out).Encode(reply)
}

func writeError(out io.Writer, err error) error {
	body := ErrorReply{Error: ErrorBody{Message: err.Error()}}
	if encErr := json.NewEncoder(out).Encode(body); encErr != nil {
		return encErr
	}
	return err
}

