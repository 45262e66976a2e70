// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package link implements the receiver-link: one TCP connection to a
// receiver agent carrying a bidirectional newline-delimited JSON event
// stream, with event-id request/response correlation and the two
// asynchronous "sinks" (error, sync-success) described in spec.md §4.2
// and §9's design notes.
package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/pkg/errors"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

// IdleTimeout is the receiver-link's socket idle timeout (spec.md §4.2).
const IdleTimeout = 5 * time.Minute

// Link is one TCP connection to the receiver, speaking the newline-
// delimited JSON control protocol. Once Sync() has been acknowledged,
// the underlying connection is also the raw byte pipe for the send
// stream - see Conn().
type Link struct {
	conn net.Conn
	w    *wire.Writer

	log logger.Logger

	mu          sync.Mutex
	nextEventID uint64
	waiters     map[uint64]chan wire.Frame

	errSink  atomic.Pointer[chan error]
	syncSink atomic.Pointer[chan struct{}]

	closeOnce sync.Once
	closed    chan struct{}
	readErr   error

	endedSuccessfully atomic.Bool
}

// Dial opens a receiver-link to host:port.
func Dial(ctx context.Context, host string, port int, log logger.Logger) (*Link, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, errors.NewLinkError(fmt.Sprintf("connect to %s:%d failed: %v", host, port, err))
	}
	return newLink(conn, log), nil
}

func newLink(conn net.Conn, log logger.Logger) *Link {
	l := &Link{
		conn:    conn,
		w:       wire.NewWriter(conn),
		log:     log,
		waiters: make(map[uint64]chan wire.Frame),
		closed:  make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// SetErrorSink installs the current pipeline stage's error sink,
// replacing any previous one. At most one value is delivered on it.
func (l *Link) SetErrorSink() <-chan error {
	ch := make(chan error, 1)
	l.errSink.Store(&ch)
	return ch
}

// SetSyncSink installs the current stage's sync-success sink.
func (l *Link) SetSyncSink() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.syncSink.Store(&ch)
	return ch
}

func (l *Link) fireError(err error) {
	if p := l.errSink.Load(); p != nil {
		select {
		case (*p) <- err:
		default:
		}
	}
}

func (l *Link) fireSyncSuccess() {
	if p := l.syncSink.Load(); p != nil {
		select {
		case (*p) <- struct{}{}:
		default:
		}
	}
}

// readLoop owns the socket's read side for the link's whole life, also
// while the send stream is written after Sync(); see Conn(). It dispatches responses to waiters and
// async error/sync-success frames to the current sinks.
func (l *Link) readLoop() {
	_ = l.conn.SetReadDeadline(time.Now().Add(IdleTimeout))
	r := wire.NewReader(l.conn)
	for {
		frame, err := r.ReadFrame()
		if err != nil {
			l.teardown(err)
			return
		}
		_ = l.conn.SetReadDeadline(time.Now().Add(IdleTimeout))

		switch frame.Type {
		case wire.TypeResponse:
			l.mu.Lock()
			ch, ok := l.waiters[frame.EventID]
			if ok {
				delete(l.waiters, frame.EventID)
			}
			l.mu.Unlock()
			if !ok {
				l.teardown(errors.NewProtocolError(fmt.Sprintf("response for unknown event id %d", frame.EventID)))
				return
			}
			ch <- frame
		case wire.TypeError:
			l.fireError(errors.NewRemoteError(frame.Message))
		case wire.TypeSyncSuccess:
			l.endedSuccessfully.Store(true)
			l.fireSyncSuccess()
		default:
			l.log.Warn("receiver-link: unexpected frame type", "type", frame.Type, "command", frame.Command)
		}
	}
}

// teardown runs once, on any read-side failure (EOF, idle timeout,
// malformed JSON) observed by readLoop. If the dataset context never saw
// sync-success, a synthetic failure is delivered to the error sink
// (spec.md §4.2). An explicit, caller-initiated Close races this via
// closeOnce and suppresses the synthetic error: only the read side ever
// calls teardown.
func (l *Link) teardown(err error) {
	l.closeOnce.Do(func() {
		l.readErr = err
		close(l.closed)
		_ = l.conn.Close()

		if !l.endedSuccessfully.Load() {
			var linkErr error
			if err == io.EOF {
				linkErr = errors.NewLinkError("no sync-success received before connection end")
			} else if _, ok := err.(*wire.MalformedFrameError); ok {
				linkErr = errors.NewLinkError(err.Error())
			} else {
				linkErr = errors.NewLinkError(fmt.Sprintf("connection error: %v", err))
			}
			l.fireError(linkErr)
		}
	})
}

// request sends a request frame and blocks for its correlated response,
// or until ctx is cancelled.
func (l *Link) request(ctx context.Context, command string, fields map[string]any) (wire.Frame, error) {
	id := atomic.AddUint64(&l.nextEventID, 1)
	ch := make(chan wire.Frame, 1)

	l.mu.Lock()
	l.waiters[id] = ch
	l.mu.Unlock()

	if err := l.w.WriteFrame(wire.NewRequest(id, command, fields)); err != nil {
		l.mu.Lock()
		delete(l.waiters, id)
		l.mu.Unlock()
		return wire.Frame{}, errors.NewLinkError(fmt.Sprintf("write %s request: %v", command, err))
	}

	select {
	case frame := <-ch:
		return frame, nil
	case <-l.closed:
		return wire.Frame{}, errors.NewLinkError(fmt.Sprintf("link closed awaiting %s response", command))
	case <-ctx.Done():
		l.mu.Lock()
		delete(l.waiters, id)
		l.mu.Unlock()
		return wire.Frame{}, ctx.Err()
	}
}

// GetSnapshotNames asks the receiver for the target dataset's existing
// migration snapshot short names.
func (l *Link) GetSnapshotNames(ctx context.Context, zfsFilesystem string) ([]string, error) {
	frame, err := l.request(ctx, "get-zfs-snapshot-names", map[string]any{"zfsFilesystem": zfsFilesystem})
	if err != nil {
		return nil, err
	}
	names, ok := frame.StringSlice("names")
	if !ok {
		// Not an array: treat as empty, per spec.md §4.3 step 3.
		return nil, nil
	}
	return names, nil
}

// GetResumeToken asks the receiver for a resume token for zfsFilesystem.
// An empty string means no resumable state.
func (l *Link) GetResumeToken(ctx context.Context, zfsFilesystem string) (string, error) {
	frame, err := l.request(ctx, "get-zfs-resume-token", map[string]any{"zfsFilesystem": zfsFilesystem})
	if err != nil {
		return "", err
	}
	return frame.StringField("token"), nil
}

// Sync tells the receiver to ready itself for raw bytes on this same
// socket. After this call returns successfully, the caller owns the
// socket's write side for the send stream and must not issue further
// requests until sync-success or an error (spec.md §4.2 multiplexing
// invariant).
func (l *Link) Sync(ctx context.Context, isFirstSync bool, zfsFilesystem string) error {
	_, err := l.request(ctx, "sync", map[string]any{
		"isFirstSync":   isFirstSync,
		"zfsFilesystem": zfsFilesystem,
	})
	return err
}

// Stop tells the receiver to terminate cleanly.
func (l *Link) Stop(ctx context.Context) error {
	_, err := l.request(ctx, "stop", nil)
	return err
}

// Conn exposes the raw connection for byte-streaming after Sync() has
// been acknowledged. The caller writes the send stream directly to it;
// nothing on the read side is consumed here - the background readLoop
// goroutine continues to own reads and will observe sync-success.
func (l *Link) Conn() net.Conn {
	return l.conn
}

// Touch rearms the read idle deadline. Stage B is one-directional: the
// receiver sends nothing back until sync-success, so readLoop's own
// "reset on inbound frame" logic never fires while a send is streaming.
// The caller drives this from its outbound write path so a healthy,
// long-running bulk transfer isn't mistaken for an idle connection.
func (l *Link) Touch() {
	_ = l.conn.SetReadDeadline(time.Now().Add(IdleTimeout))
}

// Close closes the underlying connection. Since each pipeline stage opens
// and closes its own link after a clean stage completion (spec.md §3
// Lifecycles), this does not synthesize an error even if no
// sync-success was seen - it only suppresses readLoop's teardown from
// doing so by winning the closeOnce race.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		_ = l.conn.Close()
	})
	return nil
}
