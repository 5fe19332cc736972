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

//go:generate mockgen -destination=mock_driver.go -package=driver github.com/jumpstarter-dev/jumpstarter/pkg/driver Driver,Channel,Tree

// Package driver defines the contract between the exporter and the device
// handlers it exposes, plus a few helpers for writing drivers.
package driver

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

// Driver is a device handler addressable by UUID.
//
// Implementations must be safe for concurrent use: the exporter invokes them
// from one goroutine per RPC.
type Driver interface {
	UUID() uuid.UUID

	// Call invokes method once and returns its single result.
	Call(ctx context.Context, method string, args []value.Value) (value.Value, error)

	// StreamingCall invokes method and yields its results in order. A non-nil
	// error ends the sequence.
	StreamingCall(ctx context.Context, method string, args []value.Value) iter.Seq2[value.Value, error]

	// OpenStream opens a byte channel to the device.
	OpenStream(ctx context.Context, target RouteTarget) (Channel, error)

	// Report describes the driver as a child named name of parent. The root
	// is reported with a nil parent.
	Report(parent Driver, name string) (*Report, error)
}

// Channel is a bidirectional byte channel to a device.
type Channel interface {
	// Send writes one chunk to the device.
	Send(ctx context.Context, p []byte) error
	// Receive returns the next chunk from the device, or io.EOF once the
	// device has finished sending.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// HalfCloser is implemented by channels that can signal end of input to the
// device while still reading its output.
type HalfCloser interface {
	CloseWrite() error
}

// MetadataCarrier is implemented by channels that announce metadata to the
// remote peer before any data flows.
type MetadataCarrier interface {
	Metadata() map[string]string
}

// Parent is implemented by drivers with children.
type Parent interface {
	Children() []Child
}

// Resetter is implemented by drivers holding state that is cleared when a
// session starts.
type Resetter interface {
	Reset() error
}

// Closer is implemented by drivers holding resources released at session end.
type Closer interface {
	Close() error
}

// Tree is a rooted tree of drivers.
type Tree interface {
	// Enumerate returns every node, root first, in depth-first order.
	Enumerate() []Node
	Reset() error
	Close() error
}

// Child is a named child of a driver.
type Child struct {
	Name   string
	Driver Driver
}

// Node is a driver positioned in a tree. Parent is nil for the root.
type Node struct {
	UUID   uuid.UUID
	Parent Driver
	Name   string
	Driver Driver
}

// Report describes one driver instance to a client.
type Report struct {
	UUID       uuid.UUID
	ParentUUID *uuid.UUID
	Labels     map[string]string
}
