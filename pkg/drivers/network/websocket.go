/*
 * Copyright 2025 The Jumpstarter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
)

const closeTimeout = time.Second

var errUnsupportedScheme = errors.New("websocket url must use ws or wss")

// WebSocketConfig is the config section of a "websocket" instance.
type WebSocketConfig struct {
	URL string `yaml:"url"`
}

// NewWebSocket returns a driver connecting to a WebSocket endpoint. Stream
// payloads travel as binary messages.
func NewWebSocket(cfg WebSocketConfig, opts ...driver.BaseOption) (*Network, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}

	return New(u.String(), func(ctx context.Context) (io.ReadWriteCloser, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		if err != nil {
			return nil, err
		}

		return &wsConn{conn: conn}, nil
	}, opts...), nil
}

// wsConn adapts a websocket connection to a byte stream. Reads drain one
// message at a time; every write is one binary message.
type wsConn struct {
	conn *websocket.Conn

	readMu sync.Mutex
	reader io.Reader

	writeMu sync.Mutex
}

func (c *wsConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if c.reader == nil {
			_, r, err := c.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}

				return 0, err
			}

			c.reader = r
		}

		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil

			if n == 0 {
				continue
			}

			err = nil
		}

		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// CloseWrite sends a close frame and keeps reading until the peer closes.
func (c *wsConn) CloseWrite() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeTimeout))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) SetDeadline(t time.Time) error {
	return errors.Join(c.conn.SetReadDeadline(t), c.conn.SetWriteDeadline(t))
}
