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

package client

import (
	"errors"
	"io"
	"sync"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
)

var (
	errWriteClosed = errors.New("write side closed")
	errNoResource  = errors.New("stream carries no resource handle")
	// ErrStreamReset is returned by Read when the exporter resets the stream.
	ErrStreamReset = errors.New("stream reset by exporter")
)

// Conn is an open byte stream to a device. Read and Write may be used from
// different goroutines.
type Conn struct {
	stream ggrpc.BidiStreamingClient[protocol.StreamRequest, protocol.StreamResponse]
	cancel func()

	buf []byte
	eof bool

	wmu         sync.Mutex
	writeClosed bool

	mdOnce sync.Once
	md     metadata.MD
	mdErr  error
}

// Read returns device output. It returns io.EOF once the device has finished.
func (c *Conn) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		if c.eof {
			return 0, io.EOF
		}

		frame, err := c.stream.Recv()
		if errors.Is(err, io.EOF) {
			c.eof = true

			return 0, io.EOF
		}

		if err != nil {
			return 0, err
		}

		switch frame.FrameType {
		case protocol.FrameTypeData:
			c.buf = frame.Payload
		case protocol.FrameTypeGoAway:
			c.eof = true
		case protocol.FrameTypeRstStream:
			return 0, ErrStreamReset
		}
	}

	n := copy(p, c.buf)
	c.buf = c.buf[n:]

	return n, nil
}

// Write sends p to the device as one DATA frame.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeClosed {
		return 0, errWriteClosed
	}

	if len(p) == 0 {
		return 0, nil
	}

	if err := c.stream.Send(&protocol.StreamRequest{FrameType: protocol.FrameTypeData, Payload: p}); err != nil {
		return 0, err
	}

	return len(p), nil
}

// CloseWrite tells the device no more input follows. Output can still be read.
func (c *Conn) CloseWrite() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeClosed {
		return nil
	}

	c.writeClosed = true

	if err := c.stream.Send(&protocol.StreamRequest{FrameType: protocol.FrameTypeGoAway}); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return c.stream.CloseSend()
}

// Close abandons the stream.
func (c *Conn) Close() error {
	c.cancel()

	return nil
}

// Metadata returns the headers the exporter announced for this stream. It
// blocks until the headers arrive, which for channels without metadata is
// the first output frame or the end of the stream.
func (c *Conn) Metadata() (metadata.MD, error) {
	c.mdOnce.Do(func() {
		c.md, c.mdErr = c.stream.Header()
	})

	return c.md, c.mdErr
}

// Resource returns the resource handle announced by a resource stream, to be
// passed as an argument to the driver method that consumes it.
func (c *Conn) Resource() (string, error) {
	md, err := c.Metadata()
	if err != nil {
		return "", err
	}

	values := md.Get(driver.MetadataResource)
	if len(values) == 0 {
		return "", errNoResource
	}

	return values[0], nil
}
