// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/pkg/errors"
	zfscommon "github.com/stratastor/rodent-migrate-send/pkg/zfs/common"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/link"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/progress"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/sendrecv"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

// streamTick is the periodic progress-refresh interval of spec.md §4.3
// step 4.
const streamTick = 495 * time.Millisecond

// DialFunc opens a fresh receiver-link for one pipeline stage. The
// sync orchestrator supplies this, closed over the receiver's
// host/port from the `sync` command.
type DialFunc func(ctx context.Context) (*link.Link, error)

// Pipeline runs Stage A/B for one dataset at a time. One Pipeline is
// shared across all of a sync command's datasets; DatasetContext is the
// per-dataset state threaded through Collect/Stream.
type Pipeline struct {
	Adapter   *sendrecv.Adapter
	Dial      DialFunc
	Task      *types.MigrationTask
	Counters  *progress.Counters
	Log       logger.Logger
	StopFlag  *atomic.Bool

	// ThrottleBytesPerSec is the reserved rate-throttle hook; 0 disables
	// it (spec.md §9 - unconfigured in this revision).
	ThrottleBytesPerSec int64
}

// Collect runs Stage A for datasetName: negotiate resumability and
// snapshot naming with the receiver, create the new migration snapshot
// if needed, and estimate the send size. Returns the populated
// DatasetContext, left in StateReady on success.
func (p *Pipeline) Collect(ctx context.Context, datasetName string) (*DatasetContext, error) {
	dc := &DatasetContext{ZFSFilesystem: datasetName, State: StateCollecting}
	log := p.Log

	if err := zfscommon.DatasetNameCheck(datasetName); err != nil {
		dc.State = StateFailed
		return dc, errors.NewSetupError("invalid dataset name " + datasetName + ": " + err.Error())
	}

	sourceNames, err := p.Adapter.ListSnapshots(ctx, datasetName)
	if err != nil {
		dc.State = StateFailed
		return dc, err
	}
	dc.SourceSnapshotNames = sourceNames

	targetName := p.Task.TargetName(datasetName)

	lk, err := p.Dial(ctx)
	if err != nil {
		dc.State = StateFailed
		return dc, err
	}
	defer lk.Close()

	targetNames, err := lk.GetSnapshotNames(ctx, targetName)
	if err != nil {
		dc.State = StateFailed
		return dc, err
	}
	dc.TargetSnapshotNames = targetNames

	isFirstSync, continueLastSync := resolveResumability(p.Task.ProgressHistory)
	if continueLastSync {
		token, err := lk.GetResumeToken(ctx, targetName)
		if err != nil {
			dc.State = StateFailed
			return dc, err
		}
		isFirstSync, continueLastSync = downgradeResumability(true, token, dc.TargetSnapshotNames)
		dc.Token = token
	}
	dc.IsFirstSync = isFirstSync
	dc.ContinueLastSync = continueLastSync

	phase := p.Task.SyncPhase()
	prev := types.SnapshotName(phase)
	next := types.SnapshotName(phase + 1)
	for types.ContainsSnapshot(dc.TargetSnapshotNames, next) {
		phase = p.Task.AdvanceSyncPhase()
		prev = types.SnapshotName(phase)
		next = types.SnapshotName(phase + 1)
		dc.IsFirstSync = false
		log.Warn("planned snapshot name collides with existing target snapshot, advancing",
			"dataset", datasetName, "next", next)
	}
	dc.PrevSnapshotName = prev
	dc.SnapshotName = next
	dc.State = StateSnapshotted

	if !types.ContainsSnapshot(dc.SourceSnapshotNames, next) {
		if err := p.Adapter.CreateSnapshot(ctx, datasetName, next); err != nil {
			dc.State = StateFailed
			return dc, err
		}
		dc.SourceSnapshotNames = append(dc.SourceSnapshotNames, next)
	}

	args := sendrecv.SendArgs(sendSpec(dc))
	// Estimation always runs against the full send spec, even when it
	// resolves to `-t <token>` (resumed sends still report a size
	// estimate for the remaining bytes).
	size, err := p.Adapter.EstimateSend(ctx, args)
	if err != nil {
		dc.State = StateFailed
		return dc, err
	}
	dc.EstimatedSize = size
	dc.State = StateEstimated

	p.Counters.AddTotal(size)
	dc.State = StateReady

	return dc, nil
}

// Stream runs Stage B for dc: open a link, ready the receiver, spawn the
// send, forward bytes, and await both a zero exit and sync-success.
func (p *Pipeline) Stream(ctx context.Context, dc *DatasetContext) error {
	log := p.Log
	targetName := p.Task.TargetName(dc.ZFSFilesystem)

	lk, err := p.Dial(ctx)
	if err != nil {
		dc.State = StateFailed
		return err
	}
	defer lk.Close()

	dc.State = StateStreaming

	// Sinks must be live before Sync() is even sent: the receiver is free
	// to answer with an async error, or with sync-success (a zero-byte
	// transfer completes immediately), before this call returns. Installing
	// them any later risks dropping that frame into a nil sink.
	errSink := lk.SetErrorSink()
	syncSink := lk.SetSyncSink()

	if err := lk.Sync(ctx, dc.IsFirstSync, targetName); err != nil {
		dc.State = StateFailed
		return err
	}

	handle, err := p.Adapter.StartSend(ctx, sendrecv.SendArgs(sendSpec(dc)))
	if err != nil {
		dc.State = StateFailed
		return err
	}

	baseline := p.Counters.Current()
	var written atomic.Int64
	dst := &touchingWriter{w: newThrottledWriter(lk.Conn(), p.ThrottleBytesPerSec), touch: lk.Touch}

	copyDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(dst, &countingReader{r: handle.Stdout, n: &written})
		copyDone <- err
	}()

	stopTick := make(chan struct{})
	go p.refreshProgress(baseline, &written, stopTick)
	defer close(stopTick)

	go func() {
		for chunk := range handle.StderrChunks {
			log.Debug("zfs send stderr", "dataset", dc.ZFSFilesystem, "bytes", len(chunk))
		}
	}()

	processDone := false
	syncDone := false

	for !processDone || !syncDone {
		select {
		case err := <-copyDone:
			if err != nil {
				log.Debug("stream copy ended", "dataset", dc.ZFSFilesystem, "err", err)
			}
		case res := <-handle.Done:
			processDone = true
			if res.Err != nil || res.Code != 0 || res.Killed {
				dc.State = StateFailed
				return errors.NewStorageError("stream",
					fmt.Sprintf("send exited code=%d killed=%v signal=%s stderr=%s",
						res.Code, res.Killed, res.Signal, res.StderrSummary))
			}
		case <-syncSink:
			syncDone = true
			dc.EndedSuccessfully = true
			dc.State = StateAwaitingAck
		case err := <-errSink:
			dc.State = StateFailed
			_ = handle.Kill()
			return err
		case <-ctx.Done():
			dc.State = StateFailed
			_ = handle.Kill()
			return ctx.Err()
		}
	}

	dc.State = StateDone
	return nil
}

// refreshProgress runs the 495ms periodic tick of spec.md §4.3 step 4,
// self-cancelling when stop is closed or the process-wide stop flag is
// observed set.
func (p *Pipeline) refreshProgress(baseline int64, written *atomic.Int64, stop <-chan struct{}) {
	ticker := time.NewTicker(streamTick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.StopFlag != nil && p.StopFlag.Load() {
				return
			}
			p.Counters.SetCurrent(baseline + written.Load())
		}
	}
}

func sendSpec(dc *DatasetContext) sendrecv.SendSpec {
	return sendrecv.SendSpec{
		ContinueLastSync: dc.ContinueLastSync,
		Token:            dc.Token,
		IsFirstSync:      dc.IsFirstSync,
		Dataset:          dc.ZFSFilesystem,
		PrevSnapshotName: dc.PrevSnapshotName,
		SnapshotName:     dc.SnapshotName,
	}
}

// countingReader tallies bytes read through it into n, so the progress
// tick can read a live total without racing the io.Copy loop over a
// shared non-atomic counter.
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n.Add(int64(n))
	}
	return n, err
}

// touchingWriter rearms the receiver-link's read idle deadline on every
// outbound write, so one-directional Stage B streaming isn't mistaken
// for an idle connection (see Link.Touch).
type touchingWriter struct {
	w     io.Writer
	touch func()
}

func (t *touchingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.touch()
	}
	return n, err
}
