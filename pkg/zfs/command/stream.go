/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package command

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"

	"github.com/stratastor/rodent-migrate-send/pkg/errors"
)

// StreamHandle is a running command whose stdout is left live for the
// caller to forward byte-for-byte (e.g. into a TCP socket), instead of
// being buffered in memory the way Execute buffers it. Only `zfs send`
// uses this; every other adapter call goes through Execute.
type StreamHandle struct {
	// Stdout carries the command's raw stdout. The caller owns draining
	// it (typically io.Copy into a net.Conn) and must not let it sit
	// unread - OS pipe backpressure is how the sender observes a slow
	// receiver (spec.md §5, "byte-pipe backpressure").
	Stdout io.ReadCloser

	// StderrChunks delivers stderr data as it arrives, for live logging.
	StderrChunks <-chan []byte

	// Done fires exactly once, after the process has exited and stderr
	// has been fully drained.
	Done <-chan StreamResult

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// StreamResult is the terminal status of a StreamHandle.
type StreamResult struct {
	Code   int
	Killed bool
	Signal string
	Err    error

	// StderrSummary is the sliding-window capture of stderr: first 2500
	// bytes, then "...", then last 2500 bytes, if stderr exceeded 5000
	// bytes total; otherwise the full captured stderr.
	StderrSummary string
}

// Kill terminates the running process.
func (h *StreamHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

// StartStream starts cmd/args with the same argv construction and
// security checks as Execute, but returns a live stdout pipe instead of
// buffering output. Used by the migration sender's `zfs send` adapter.
func (e *CommandExecutor) StartStream(ctx context.Context, opts CommandOptions, cmd string, args ...string) (*StreamHandle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	execCmd, cancel, err := e.prepare(ctx, opts, cmd, args...)
	if err != nil {
		return nil, err
	}

	stdout, err := execCmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.CommandPipe)
	}
	stderr, err := execCmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.CommandPipe)
	}

	if err := execCmd.Start(); err != nil {
		cancel()
		return nil, errors.NewCommandError(
			strings.Join(execCmd.Args, " "),
			-1,
			fmt.Sprintf("failed to start command: %v", err),
		)
	}

	chunks := make(chan []byte, 16)
	done := make(chan StreamResult, 1)
	h := &StreamHandle{
		Stdout:       stdout,
		StderrChunks: chunks,
		Done:         done,
		cmd:          execCmd,
		cancel:       cancel,
	}

	window := newSlidingWindow(2500)
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, rerr := stderr.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				window.Write(chunk)
				select {
				case chunks <- chunk:
				case <-ctx.Done():
				}
			}
			if rerr != nil {
				return
			}
		}
	}()

	go func() {
		defer cancel()
		<-stderrDone
		waitErr := execCmd.Wait()
		result := StreamResult{StderrSummary: window.String()}
		if waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				result.Code = exitErr.ExitCode()
				if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
					result.Killed = true
					result.Signal = ws.Signal().String()
				}
			} else {
				result.Err = waitErr
				result.Code = -1
			}
		}
		done <- result
		close(done)
	}()

	return h, nil
}

// slidingWindow retains the first and last n bytes written to it, per
// spec.md §4.1's stderr-capture rule. Below 2n total bytes, nothing is
// discarded; past that it keeps only the frozen first n bytes and a
// sliding last-n window, joined by an ellipsis marker.
type slidingWindow struct {
	n          int
	buf        []byte
	head       []byte
	tail       []byte
	overflowed bool
}

func newSlidingWindow(n int) *slidingWindow {
	return &slidingWindow{n: n}
}

func (w *slidingWindow) Write(p []byte) {
	if !w.overflowed {
		w.buf = append(w.buf, p...)
		if len(w.buf) > 2*w.n {
			w.overflowed = true
			w.head = append([]byte(nil), w.buf[:w.n]...)
			w.tail = append([]byte(nil), w.buf[len(w.buf)-w.n:]...)
			w.buf = nil
		}
		return
	}
	w.tail = append(w.tail, p...)
	if len(w.tail) > w.n {
		w.tail = w.tail[len(w.tail)-w.n:]
	}
}

func (w *slidingWindow) String() string {
	if !w.overflowed {
		return string(w.buf)
	}
	return string(w.head) + "..." + string(w.tail)
}
