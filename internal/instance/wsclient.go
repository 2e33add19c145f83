// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/logging"
)

// WSChannel is the websocket-backed CommandChannel. Requests carry an
// incrementing id; a reader goroutine matches responses back to the
// waiting caller. Connection management is deliberately minimal: a
// closed or never-opened connection fails calls with
// KindChannelUnavailable and the owner decides when to reconnect.
type WSChannel struct {
	url            string
	defaultTimeout time.Duration
	logger         *logging.Logger

	writeMu sync.Mutex // serializes writes on the connection

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  uint64
	pending map[uint64]chan map[string]any
}

// NewWSChannel creates a channel for the given endpoint. Connect must
// be called before use.
func NewWSChannel(url string, defaultTimeout time.Duration, logger *logging.Logger) *WSChannel {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	return &WSChannel{
		url:            url,
		defaultTimeout: defaultTimeout,
		logger:         logger,
		pending:        make(map[uint64]chan map[string]any),
	}
}

// Connect dials the instance and starts the response reader.
func (c *WSChannel) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, errors.KindChannelUnavailable, "connecting to %s", c.url)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close tears down the connection. In-flight requests fail with
// KindChannelUnavailable.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			c.dropConn(conn)
			return
		}
		id, ok := msg["id"].(float64)
		if !ok {
			// Unsolicited events are not consumed by caretaker.
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[uint64(id)]
		delete(c.pending, uint64(id))
		c.mu.Unlock()

		if ok {
			ch <- msg
		}
	}
}

// dropConn clears the stored connection and unblocks all waiters.
func (c *WSChannel) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	waiters := c.pending
	c.pending = make(map[uint64]chan map[string]any)
	c.mu.Unlock()

	conn.Close()
	for _, ch := range waiters {
		close(ch)
	}
}

// SendCommand implements CommandChannel.
func (c *WSChannel) SendCommand(ctx context.Context, cmd Command) (map[string]any, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, errors.New(errors.KindChannelUnavailable, "command channel is not connected")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan map[string]any, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	frame := make(map[string]any, len(cmd)+1)
	for k, v := range cmd {
		frame[k] = v
	}
	frame["id"] = id

	if err := c.writeJSON(conn, frame); err != nil {
		c.forget(id)
		return nil, errors.Wrapf(err, errors.KindChannelUnavailable, "sending %v", cmd["type"])
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, errors.Errorf(errors.KindChannelUnavailable, "connection lost awaiting %v", cmd["type"])
		}
		return commandResult(msg, cmd)
	case <-ctx.Done():
		c.forget(id)
		return nil, errors.Wrapf(ctx.Err(), errors.KindChannelTimeout, "no response to %v", cmd["type"])
	}
}

// SendMessage implements CommandChannel.
func (c *WSChannel) SendMessage(cmd Command) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New(errors.KindChannelUnavailable, "command channel is not connected")
	}
	if err := c.writeJSON(conn, map[string]any(cmd)); err != nil {
		return errors.Wrapf(err, errors.KindChannelUnavailable, "sending %v", cmd["type"])
	}
	return nil
}

func (c *WSChannel) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *WSChannel) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// commandResult unpacks a response frame. A declared failure is an
// error; the result payload is returned when present.
func commandResult(msg map[string]any, cmd Command) (map[string]any, error) {
	if success, ok := msg["success"].(bool); ok && !success {
		return nil, errors.Errorf(errors.KindUnavailable, "instance rejected %v", cmd["type"])
	}
	if result, ok := msg["result"].(map[string]any); ok {
		return result, nil
	}
	return msg, nil
}
