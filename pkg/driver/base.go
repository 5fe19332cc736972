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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

const (
	// LabelClient names the client class a consumer should use for a driver.
	LabelClient = "jumpstarter.dev/client"
	// LabelName carries the name of a driver under its parent.
	LabelName = "jumpstarter.dev/name"
	// MetadataResource is the channel metadata key announcing a resource handle.
	MetadataResource = "resource"
)

// CallFunc implements an exported unary method.
type CallFunc func(ctx context.Context, args []value.Value) (value.Value, error)

// StreamingCallFunc implements an exported streaming method.
type StreamingCallFunc func(ctx context.Context, args []value.Value) iter.Seq2[value.Value, error]

// StreamFunc implements an exported byte stream.
type StreamFunc func(ctx context.Context) (Channel, error)

// Base implements the bookkeeping shared by most drivers: identity, labels,
// children, method tables and resource handles. Concrete drivers embed it and
// register their methods with the Export functions.
type Base struct {
	id     uuid.UUID
	labels map[string]string
	client string

	mu             sync.RWMutex
	children       []Child
	calls          map[string]CallFunc
	streamingCalls map[string]StreamingCallFunc
	streams        map[string]StreamFunc
	resources      map[uuid.UUID]*PipeEnd
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithUUID fixes the driver identity instead of generating one.
func WithUUID(id uuid.UUID) BaseOption {
	return func(b *Base) {
		b.id = id
	}
}

// WithLabels sets the labels reported for the driver.
func WithLabels(labels map[string]string) BaseOption {
	return func(b *Base) {
		b.labels = maps.Clone(labels)
	}
}

// WithClient sets the client class reported for the driver.
func WithClient(client string) BaseOption {
	return func(b *Base) {
		b.client = client
	}
}

// NewBase returns a Base with a random identity unless WithUUID is given.
func NewBase(opts ...BaseOption) *Base {
	b := &Base{
		calls:          make(map[string]CallFunc),
		streamingCalls: make(map[string]StreamingCallFunc),
		streams:        make(map[string]StreamFunc),
		resources:      make(map[uuid.UUID]*PipeEnd),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.id == uuid.Nil {
		b.id = uuid.New()
	}

	return b
}

func (b *Base) UUID() uuid.UUID {
	return b.id
}

// AddChild appends a named child. Names are reported but not required to be unique.
func (b *Base) AddChild(name string, d Driver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.children = append(b.children, Child{Name: name, Driver: d})
}

// Children returns the children in insertion order.
func (b *Base) Children() []Child {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Child, len(b.children))
	copy(out, b.children)

	return out
}

// ExportCall registers a unary method.
func (b *Base) ExportCall(name string, fn CallFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls[name] = fn
}

// ExportStreamingCall registers a streaming method.
func (b *Base) ExportStreamingCall(name string, fn StreamingCallFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.streamingCalls[name] = fn
}

// ExportStream registers a byte stream method.
func (b *Base) ExportStream(name string, fn StreamFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.streams[name] = fn
}

func (b *Base) Call(ctx context.Context, method string, args []value.Value) (value.Value, error) {
	b.mu.RLock()
	fn, ok := b.calls[method]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}

	return fn(ctx, args)
}

func (b *Base) StreamingCall(ctx context.Context, method string, args []value.Value) iter.Seq2[value.Value, error] {
	b.mu.RLock()
	fn, ok := b.streamingCalls[method]
	b.mu.RUnlock()

	if !ok {
		return func(yield func(value.Value, error) bool) {
			yield(nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method))
		}
	}

	return fn(ctx, args)
}

func (b *Base) OpenStream(ctx context.Context, target RouteTarget) (Channel, error) {
	switch target.Kind {
	case RouteResource:
		return b.openResource()
	case RouteDriver:
		b.mu.RLock()
		fn, ok := b.streams[target.Method]
		b.mu.RUnlock()

		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, target.Method)
		}

		return fn(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRoute, target.Kind)
	}
}

// ResourceHandle is the JSON document announced under MetadataResource and
// passed back by clients as a call argument.
type ResourceHandle struct {
	UUID uuid.UUID `json:"uuid"`
}

func (b *Base) openResource() (Channel, error) {
	local, remote := Pipe()
	handle := ResourceHandle{UUID: uuid.New()}

	encoded, err := json.Marshal(handle)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.resources[handle.UUID] = local
	b.mu.Unlock()

	return NewConnChannel(remote, WithMetadata(map[string]string{
		MetadataResource: string(encoded),
	})), nil
}

// TakeResource hands the driver end of a resource to the caller, which then
// owns it. Each handle can be taken once.
func (b *Base) TakeResource(arg value.Value) (io.ReadWriteCloser, error) {
	id, err := ParseResourceHandle(arg)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	end, ok := b.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}

	delete(b.resources, id)

	return end, nil
}

// ParseResourceHandle accepts either the announced JSON document or a bare UUID string.
func ParseResourceHandle(arg value.Value) (uuid.UUID, error) {
	switch v := arg.(type) {
	case value.String:
		var handle ResourceHandle
		if err := json.Unmarshal([]byte(v), &handle); err == nil && handle.UUID != uuid.Nil {
			return handle.UUID, nil
		}

		id, err := uuid.Parse(string(v))
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: bad resource handle: %w", ErrInvalidArgument, err)
		}

		return id, nil
	case value.Struct:
		s, ok := value.AsString(v["uuid"])
		if !ok {
			return uuid.Nil, fmt.Errorf("%w: resource handle without uuid", ErrInvalidArgument)
		}

		return ParseResourceHandle(value.String(s))
	default:
		return uuid.Nil, fmt.Errorf("%w: resource handle must be a string, got %T", ErrInvalidArgument, arg)
	}
}

func (b *Base) Report(parent Driver, name string) (*Report, error) {
	labels := maps.Clone(b.labels)
	if labels == nil {
		labels = make(map[string]string)
	}

	if b.client != "" {
		labels[LabelClient] = b.client
	}

	if name != "" {
		labels[LabelName] = name
	}

	r := &Report{UUID: b.id, Labels: labels}

	if parent != nil {
		pid := parent.UUID()
		r.ParentUUID = &pid
	}

	return r, nil
}

// Close releases resources that were opened but never taken.
func (b *Base) Close() error {
	b.mu.Lock()
	pending := b.resources
	b.resources = make(map[uuid.UUID]*PipeEnd)
	b.mu.Unlock()

	var errs []error
	for _, end := range pending {
		errs = append(errs, end.Close())
	}

	return errors.Join(errs...)
}

// Arg returns args[i] or an ErrInvalidArgument error naming the missing position.
func Arg(args []value.Value, i int) (value.Value, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}

	return args[i], nil
}

// StringArg returns args[i] as a string.
func StringArg(args []value.Value, i int) (string, error) {
	v, err := Arg(args, i)
	if err != nil {
		return "", err
	}

	s, ok := value.AsString(v)
	if !ok {
		return "", fmt.Errorf("%w: argument %d must be a string, got %v", ErrInvalidArgument, i, v)
	}

	return s, nil
}

// NumberArg returns args[i] as a number.
func NumberArg(args []value.Value, i int) (float64, error) {
	v, err := Arg(args, i)
	if err != nil {
		return 0, err
	}

	n, ok := value.AsNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d must be a number, got %v", ErrInvalidArgument, i, v)
	}

	return n, nil
}
