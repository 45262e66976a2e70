// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"encoding/json"
	"net"

	"github.com/stratastor/logger"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/types"
	"github.com/stratastor/rodent-migrate-send/pkg/zfs/migrate/wire"
)

// connection is one accepted supervisor socket: a line reader dispatching
// requests per spec.md §4.5, and a writer shared with the progress
// watcher (as a watcher.Sink) for this socket's `sync`/`watch`
// subscription.
type connection struct {
	srv  *Server
	conn net.Conn
	r    *wire.Reader
	w    *wire.Writer
	log  logger.Logger
}

func newConnection(srv *Server, conn net.Conn) *connection {
	return &connection{
		srv:  srv,
		conn: conn,
		r:    wire.NewReader(conn),
		w:    wire.NewWriter(conn),
		log:  srv.log,
	}
}

// WriteFrame implements watcher.Sink.
func (c *connection) WriteFrame(f wire.Frame) error {
	return c.w.WriteFrame(f)
}

// Close implements watcher.Sink, letting the watcher destroy this
// socket directly on End (spec.md §4.6).
func (c *connection) Close() error {
	return c.conn.Close()
}

func (c *connection) run(ctx context.Context) {
	defer c.conn.Close()
	defer c.srv.unsubscribeWatcher(c)

	for {
		frame, err := c.r.ReadFrame()
		if err != nil {
			if _, ok := err.(*wire.MalformedFrameError); ok {
				c.log.Warn("control socket: malformed frame, discarding", "err", err)
				continue
			}
			return
		}
		if frame.Type != wire.TypeRequest {
			continue
		}
		if !c.dispatch(ctx, frame) {
			return
		}
	}
}

// dispatch handles one request frame. A false return ends the
// connection's read loop (after `stop`/`end`, or once `sync` completes
// and tears the whole server down).
func (c *connection) dispatch(ctx context.Context, frame wire.Frame) bool {
	switch frame.Command {
	case "ping":
		c.reply(frame, map[string]any{"pid": pid(), "version": rodentVersion})
		return true

	case "set-record":
		task, err := decodeTask(frame.Fields["record"])
		if err != nil {
			c.replyError(frame, "set-record: "+err.Error())
			return true
		}
		c.srv.SetTask(task)
		c.reply(frame, nil)
		return true

	case "sync":
		c.handleSync(ctx, frame)
		return false

	case "watch":
		c.subscribeWatcher()
		c.reply(frame, nil)
		return true

	case "stop", "end":
		c.reply(frame, nil)
		c.srv.Stop()
		return false

	default:
		_ = c.w.WriteFrame(wire.NewError("", 0, "Not Implemented", nil))
		return true
	}
}

func (c *connection) handleSync(ctx context.Context, frame wire.Frame) {
	host := frame.StringField("host")
	port, _ := frame.Int64Field("port")

	c.subscribeWatcher()

	result := c.srv.runSync(ctx, host, int(port))
	if result.Err != nil {
		c.replyError(frame, result.Err.Error())
	} else {
		c.reply(frame, nil)
	}

	// spec.md §7: after the terminal sync event the worker ends itself.
	c.srv.Stop()
}

func (c *connection) subscribeWatcher() {
	if w := c.srv.watcherFor(c.log); w != nil {
		w.Subscribe(c)
	}
}

func (s *Server) unsubscribeWatcher(c *connection) {
	s.mu.Lock()
	w := s.watch
	s.mu.Unlock()
	if w != nil {
		w.Unsubscribe(c)
	}
}

func (c *connection) reply(req wire.Frame, fields map[string]any) {
	if err := c.w.WriteFrame(wire.NewResponse(req.EventID, req.Command, fields)); err != nil {
		c.log.Warn("control socket: write response failed", "err", err)
	}
}

func (c *connection) replyError(req wire.Frame, message string) {
	if err := c.w.WriteFrame(wire.NewError(req.Command, req.EventID, message, nil)); err != nil {
		c.log.Warn("control socket: write error failed", "err", err)
	}
}

func decodeTask(raw any) (*types.MigrationTask, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var task types.MigrationTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
