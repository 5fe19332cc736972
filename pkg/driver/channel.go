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

package driver

import (
	"context"
	"errors"
	"io"
	"maps"
	"net"
	"sync"
	"time"
)

const defaultChunkSize = 32 * 1024

type deadliner interface {
	SetDeadline(t time.Time) error
}

// ConnChannel adapts a stream-oriented connection to a Channel.
//
// Context cancellation interrupts a pending Send or Receive: connections with
// deadlines are expired, anything else is closed.
type ConnChannel struct {
	conn      io.ReadWriteCloser
	buf       []byte
	metadata  map[string]string
	closeOnce sync.Once
	closeErr  error
}

// ChannelOption configures a ConnChannel.
type ChannelOption func(*ConnChannel)

// WithMetadata attaches metadata announced to the peer before any data.
func WithMetadata(md map[string]string) ChannelOption {
	return func(c *ConnChannel) {
		c.metadata = maps.Clone(md)
	}
}

// WithChunkSize sets the largest chunk returned by Receive.
func WithChunkSize(size int) ChannelOption {
	return func(c *ConnChannel) {
		if size > 0 {
			c.buf = make([]byte, size)
		}
	}
}

// NewConnChannel wraps conn. The channel owns conn from now on.
func NewConnChannel(conn io.ReadWriteCloser, opts ...ChannelOption) *ConnChannel {
	c := &ConnChannel{conn: conn}

	for _, opt := range opts {
		opt(c)
	}

	if c.buf == nil {
		c.buf = make([]byte, defaultChunkSize)
	}

	return c
}

// Send writes p in full.
func (c *ConnChannel) Send(ctx context.Context, p []byte) error {
	stop := context.AfterFunc(ctx, c.interrupt)
	defer stop()

	_, err := c.conn.Write(p)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// Receive returns the next chunk read from the connection. Reads after the
// connection was closed report io.EOF.
func (c *ConnChannel) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, c.interrupt)
	defer stop()

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, c.buf[:n])

		return out, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err == nil {
		return []byte{}, nil
	}

	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil, io.EOF
	}

	return nil, err
}

// CloseWrite half-closes the connection when it supports it and closes it
// entirely otherwise.
func (c *ConnChannel) CloseWrite() error {
	if hc, ok := c.conn.(HalfCloser); ok {
		return hc.CloseWrite()
	}

	return c.Close()
}

// Close closes the connection once.
func (c *ConnChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}

// Metadata returns the metadata given at construction.
func (c *ConnChannel) Metadata() map[string]string {
	return c.metadata
}

func (c *ConnChannel) interrupt() {
	if d, ok := c.conn.(deadliner); ok {
		if err := d.SetDeadline(time.Unix(1, 0)); err == nil {
			return
		}
	}

	_ = c.Close()
}
