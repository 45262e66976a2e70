// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator sequences a whole-VM sync across its datasets,
// per spec.md §4.4: every dataset runs Stage A (Collect) before any
// dataset begins Stage B (Stream), so the reported total byte count is
// known before streaming starts.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/link"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/pipeline"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

// Orchestrator runs one full sync command end to end for a MigrationTask.
type Orchestrator struct {
	Pipeline *pipeline.Pipeline
	Task     *types.MigrationTask
	Counters *progress.Counters
	Log      logger.Logger
}

// Result is the terminal outcome reported back over the control
// connection that requested the sync.
type Result struct {
	Datasets []*pipeline.DatasetContext
	Err      error
}

// Run collects every dataset, then streams every dataset in the same
// order, closing over a fresh receiver-link per stage per dataset. It
// stops at the first failure in either phase; datasets already streamed
// are not rolled back (spec.md §4.4 - partial progress is resumable on
// the next sync, not undone).
func (o *Orchestrator) Run(ctx context.Context) Result {
	o.Counters.Reset()
	defer o.stopReceiver(ctx)

	datasets := o.Task.Datasets()

	contexts := make([]*pipeline.DatasetContext, 0, len(datasets))
	for _, name := range datasets {
		dc, err := o.Pipeline.Collect(ctx, name)
		if err != nil {
			return Result{Datasets: contexts, Err: fmt.Errorf("collect %s: %w", name, err)}
		}
		contexts = append(contexts, dc)
		o.Log.Info("dataset collected", "dataset", name, "estimatedSize", dc.EstimatedSize)
	}

	for _, dc := range contexts {
		if err := o.Pipeline.Stream(ctx, dc); err != nil {
			return Result{Datasets: contexts, Err: fmt.Errorf("stream %s: %w", dc.ZFSFilesystem, err)}
		}
		o.Log.Info("dataset streamed", "dataset", dc.ZFSFilesystem)
	}

	return Result{Datasets: contexts}
}

// stopReceiver opens one final receiver-link and issues stop, on both
// success and every early-return failure path (spec.md §4.4). Errors
// from the dial or the stop request are logged and swallowed: the
// worker's own termination does not depend on the receiver acking this.
func (o *Orchestrator) stopReceiver(ctx context.Context) {
	lk, err := o.Pipeline.Dial(ctx)
	if err != nil {
		o.Log.Warn("orchestrator: dial for final stop failed", "err", err)
		return
	}
	defer lk.Close()

	if err := lk.Stop(ctx); err != nil {
		o.Log.Warn("orchestrator: receiver stop failed", "err", err)
	}
}

// DialerFor builds a pipeline.DialFunc that opens a fresh receiver-link
// to host:port for every call, per spec.md §3's per-stage link lifecycle.
func DialerFor(host string, port int, log logger.Logger) pipeline.DialFunc {
	return func(ctx context.Context) (*link.Link, error) {
		return link.Dial(ctx, host, port, log)
	}
}
