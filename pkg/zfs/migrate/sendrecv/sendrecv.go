// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package sendrecv implements the four storage CLI adapter operations the
// dataset pipeline drives: listing migration snapshots, creating one,
// estimating a send's size, and starting the send stream itself. It is a
// thin, migration-specific layer over pkg/zfs/command.CommandExecutor.
package sendrecv

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stratastor/rodent-migrate-send/pkg/errors"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/command"
	zfscommon "github.com/stratastor/rodent-migrate-send/pkg/zfs/common"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
)

const (
	snapshotTimeout = 15 * time.Minute
	estimateTimeout = 5 * time.Minute
)

// Adapter exposes the migration sender's four storage CLI operations.
type Adapter struct {
	exec *command.CommandExecutor
}

func NewAdapter(exec *command.CommandExecutor) *Adapter {
	return &Adapter{exec: exec}
}

// ListSnapshots lists every migration-prefixed snapshot of dataset,
// sorted numerically by sequence number (spec.md §4.1).
func (a *Adapter) ListSnapshots(ctx context.Context, dataset string) ([]string, error) {
	out, err := a.exec.Execute(ctx, command.CommandOptions{Flags: command.FlagNoHeaders}, "zfs list",
		"-t", "snapshot", "-r", "-o", "name", dataset)
	if err != nil {
		return nil, errors.NewStorageError("list-snapshots", err.Error())
	}

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ds, short, ok := strings.Cut(line, "@")
		if !ok || ds != dataset {
			continue
		}
		if _, ok := types.ParseSnapshotSeq(short); ok {
			names = append(names, short)
		}
	}
	types.SortSnapshotNames(names)
	return names, nil
}

// CreateSnapshot creates <dataset>@<shortName> recursively.
func (a *Adapter) CreateSnapshot(ctx context.Context, dataset, shortName string) error {
	full := fmt.Sprintf("%s@%s", dataset, shortName)
	if err := zfscommon.SnapshotNameCheck(full); err != nil {
		return errors.NewStorageError("create-snapshot", "invalid snapshot name "+full+": "+err.Error())
	}
	_, err := a.exec.Execute(ctx, command.CommandOptions{
		Flags:   command.FlagRecursive,
		Timeout: snapshotTimeout,
	}, "zfs snapshot", full)
	if err != nil {
		return errors.NewStorageError("create-snapshot", err.Error())
	}
	return nil
}

// EstimateSend runs a dry-run send with the given args and parses the
// resulting byte estimate.
func (a *Adapter) EstimateSend(ctx context.Context, args []string) (int64, error) {
	// -n: dry run: -P: parsable verbose output, whose last line is
	// "size <bytes>". Note this is unrelated to CommandOptions.FlagParsable
	// ("-p"), which for `zfs send` means "include properties" - not
	// parsable output - so the dry-run flags are passed as plain args.
	dryRunArgs := append([]string{"-n", "-P"}, args...)
	out, err := a.exec.Execute(ctx, command.CommandOptions{
		Timeout: estimateTimeout,
	}, "zfs send", dryRunArgs...)
	if err != nil {
		return 0, errors.NewStorageError("estimate-send", err.Error())
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "size" {
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err == nil {
				return n, nil
			}
		}
		break
	}
	return 0, errors.NewProtocolError("unable to get send estimate")
}

// StartSend spawns `zfs send` with the given args and returns a live
// stream handle; see command.StreamHandle for the streaming contract.
func (a *Adapter) StartSend(ctx context.Context, args []string) (*command.StreamHandle, error) {
	h, err := a.exec.StartStream(ctx, command.CommandOptions{}, "zfs send", args...)
	if err != nil {
		return nil, errors.NewStorageError("start-send", err.Error())
	}
	return h, nil
}

// SendSpec is the pure-function input to SendArgs: a projection of a
// dataset pipeline's DatasetContext containing only what argument
// selection needs.
type SendSpec struct {
	ContinueLastSync bool
	Token            string
	IsFirstSync      bool
	Dataset          string
	PrevSnapshotName string
	SnapshotName     string
}

// SendArgs selects the `zfs send` argument list for spec deterministically,
// per spec.md §4.1:
//   - continueLastSync:        [send, -t, <token>]
//   - isFirstSync:             [send, --replicate, <dataset>@<snapshotName>]
//   - else (incremental):      [send, -I, <dataset>@<prevSnapshotName>, <dataset>@<snapshotName>]
func SendArgs(spec SendSpec) []string {
	switch {
	case spec.ContinueLastSync:
		return []string{"-t", spec.Token}
	case spec.IsFirstSync:
		return []string{"--replicate", fmt.Sprintf("%s@%s", spec.Dataset, spec.SnapshotName)}
	default:
		return []string{
			"-I",
			fmt.Sprintf("%s@%s", spec.Dataset, spec.PrevSnapshotName),
			fmt.Sprintf("%s@%s", spec.Dataset, spec.SnapshotName),
		}
	}
}
