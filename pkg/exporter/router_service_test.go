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

package exporter

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

type memRecorder struct {
	mu      sync.Mutex
	records []capture.Record
}

func (m *memRecorder) Record(rec capture.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
}

func (*memRecorder) Close() error { return nil }

func (m *memRecorder) snapshot() []capture.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]capture.Record(nil), m.records...)
}

func newRouter(t *testing.T, root driver.Driver, opts ...SessionOption) *RouterService {
	t.Helper()

	s, err := NewSession(driver.NewTree(root), opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return NewRouterService(s)
}

func data(p string) *protocol.StreamRequest {
	return &protocol.StreamRequest{FrameType: protocol.FrameTypeData, Payload: []byte(p)}
}

func TestStreamRelaysDeviceOutput(t *testing.T) {
	ctrl := gomock.NewController(t)

	id := uuid.New()
	target := driver.DriverRoute(id, "console")

	ch := driver.NewMockChannel(ctrl)
	gomock.InOrder(
		ch.EXPECT().Receive(gomock.Any()).Return([]byte("b1"), nil),
		ch.EXPECT().Receive(gomock.Any()).Return([]byte("b2"), nil),
		ch.EXPECT().Receive(gomock.Any()).Return(nil, io.EOF),
	)
	ch.EXPECT().Close().Return(nil).MinTimes(1)

	d := driver.NewMockDriver(ctrl)
	d.EXPECT().UUID().Return(id).AnyTimes()
	d.EXPECT().OpenStream(gomock.Any(), target).Return(ch, nil)

	rec := &memRecorder{}
	router := newRouter(t, d, WithRecorder(rec))

	stream := newFakeRouterStream(context.Background(), target)
	close(stream.in)

	require.NoError(t, router.Stream(stream))

	frames := stream.frames()
	require.Len(t, frames, 3)
	assert.Equal(t, protocol.FrameTypeData, frames[0].FrameType)
	assert.Equal(t, []byte("b1"), frames[0].Payload)
	assert.Equal(t, protocol.FrameTypeData, frames[1].FrameType)
	assert.Equal(t, []byte("b2"), frames[1].Payload)
	assert.Equal(t, protocol.FrameTypeGoAway, frames[2].FrameType)
	assert.Empty(t, frames[2].Payload)

	records := rec.snapshot()
	require.Len(t, records, 3)

	for _, r := range records {
		assert.Equal(t, capture.DirectionToClient, r.Direction)
		assert.Equal(t, target.String(), r.Target)
		assert.Equal(t, records[0].StreamID, r.StreamID)
	}
}

func TestStreamRejectsBadRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	d := driver.NewMockDriver(ctrl)
	d.EXPECT().UUID().Return(uuid.New()).AnyTimes()

	router := newRouter(t, d)

	stream := newFakeRouterStream(context.Background(), driver.DriverRoute(uuid.New(), "console"))
	assert.Equal(t, codes.NotFound, status.Code(router.Stream(stream)))

	stream.ctx = context.Background()
	assert.Equal(t, codes.InvalidArgument, status.Code(router.Stream(stream)))

	stream.ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(protocol.MetadataRequest, `{"kind":"driver"}`))
	assert.Equal(t, codes.InvalidArgument, status.Code(router.Stream(stream)))

	stream.ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(protocol.MetadataRequest, "{"))
	assert.Equal(t, codes.InvalidArgument, status.Code(router.Stream(stream)))

	assert.Empty(t, stream.frames())
}

func TestStreamOpenFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	id := uuid.New()

	d := driver.NewMockDriver(ctrl)
	d.EXPECT().UUID().Return(id).AnyTimes()
	d.EXPECT().OpenStream(gomock.Any(), gomock.Any()).Return(nil, errBoom)

	router := newRouter(t, d)

	err := router.Stream(newFakeRouterStream(context.Background(), driver.DriverRoute(id, "console")))
	assert.Equal(t, codes.Unavailable, status.Code(err))

	root := driver.NewBase()
	router = newRouter(t, root)

	err = router.Stream(newFakeRouterStream(context.Background(), driver.DriverRoute(root.UUID(), "missing")))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStreamForwardsPeerFrames(t *testing.T) {
	local, remote := driver.Pipe()

	root := driver.NewBase()
	root.ExportStream("console", func(context.Context) (driver.Channel, error) {
		return driver.NewConnChannel(remote), nil
	})

	router := newRouter(t, root)

	received := make(chan string, 1)

	go func() {
		got, _ := io.ReadAll(local)
		received <- string(got)

		_, _ = local.Write([]byte("bye"))
		_ = local.CloseWrite()
	}()

	stream := newFakeRouterStream(context.Background(), driver.DriverRoute(root.UUID(), "console"))
	stream.in <- data("hello ")
	stream.in <- data("")
	stream.in <- data("world")
	stream.in <- &protocol.StreamRequest{FrameType: protocol.FrameTypeGoAway}

	require.NoError(t, router.Stream(stream))
	assert.Equal(t, "hello world", <-received)

	frames := stream.frames()
	require.NotEmpty(t, frames)

	var out []byte
	for _, f := range frames[:len(frames)-1] {
		assert.Equal(t, protocol.FrameTypeData, f.FrameType)
		out = append(out, f.Payload...)
	}

	assert.Equal(t, "bye", string(out))
	assert.Equal(t, protocol.FrameTypeGoAway, frames[len(frames)-1].FrameType)
}

func TestStreamClosesChannelWhenPeerFails(t *testing.T) {
	local, remote := driver.Pipe()

	root := driver.NewBase()
	root.ExportStream("console", func(context.Context) (driver.Channel, error) {
		return driver.NewConnChannel(remote), nil
	})

	router := newRouter(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	stream := newFakeRouterStream(ctx, driver.DriverRoute(root.UUID(), "console"))

	done := make(chan error, 1)

	go func() {
		done <- router.Stream(stream)
	}()

	stream.in <- data("ping")

	buf := make([]byte, 4)
	_, err := io.ReadFull(local, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish after the peer went away")
	}

	_, err = io.ReadAll(local)
	require.NoError(t, err)
}

func TestStreamResourceAnnouncesHandle(t *testing.T) {
	root := driver.NewBase()
	router := newRouter(t, root)

	stream := newFakeRouterStream(context.Background(), driver.ResourceRoute(root.UUID()))

	done := make(chan error, 1)

	go func() {
		done <- router.Stream(stream)
	}()

	var handle string

	require.Eventually(t, func() bool {
		values := stream.Header().Get(driver.MetadataResource)
		if len(values) == 0 {
			return false
		}

		handle = values[0]

		return true
	}, 5*time.Second, 5*time.Millisecond)

	end, err := root.TakeResource(value.String(handle))
	require.NoError(t, err)

	stream.in <- data("image")
	close(stream.in)

	got, err := io.ReadAll(end)
	require.NoError(t, err)
	assert.Equal(t, "image", string(got))
	require.NoError(t, end.Close())

	require.NoError(t, <-done)

	_, err = root.TakeResource(value.String(handle))
	require.ErrorIs(t, err, driver.ErrResourceNotFound)
}

// endlessChannel produces device output forever and counts every Receive.
type endlessChannel struct {
	receives atomic.Int64
	closed   atomic.Bool
}

func (*endlessChannel) Send(context.Context, []byte) error { return nil }

func (c *endlessChannel) Receive(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, io.EOF
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.receives.Add(1)

	return []byte("x"), nil
}

func (c *endlessChannel) Close() error {
	c.closed.Store(true)

	return nil
}

// slowPeerStream lets one Send through per value taken from gate.
type slowPeerStream struct {
	*fakeRouterStream

	gate chan struct{}
}

func (s *slowPeerStream) Send(resp *protocol.StreamResponse) error {
	<-s.gate

	return s.fakeRouterStream.Send(resp)
}

func TestStreamSlowPeerStallsDevice(t *testing.T) {
	ch := &endlessChannel{}

	root := driver.NewBase()
	root.ExportStream("console", func(context.Context) (driver.Channel, error) {
		return ch, nil
	})

	router := newRouter(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &slowPeerStream{
		fakeRouterStream: newFakeRouterStream(ctx, driver.DriverRoute(root.UUID(), "console")),
		gate:             make(chan struct{}),
	}

	done := make(chan error, 1)

	go func() {
		done <- router.Stream(stream)
	}()

	// One frame is held by the blocked Send, queueCapacity are queued and
	// one more waits to be queued.
	stalled := int64(queueCapacity + 2)

	require.Eventually(t, func() bool {
		return ch.receives.Load() == stalled
	}, 5*time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stalled, ch.receives.Load())

	stream.gate <- struct{}{}

	require.Eventually(t, func() bool {
		return ch.receives.Load() == stalled+1
	}, 5*time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stalled+1, ch.receives.Load())
	assert.Len(t, stream.frames(), 1)

	cancel()
	close(stream.gate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish after the peer went away")
	}
}
