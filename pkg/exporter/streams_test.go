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

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

func callRequest(id uuid.UUID, method string, args ...value.Value) *protocol.DriverCallRequest {
	return &protocol.DriverCallRequest{UUID: id.String(), Method: method, Args: value.ToWireList(args)}
}

func streamingRequest(id uuid.UUID, method string, args ...value.Value) *protocol.StreamingDriverCallRequest {
	return &protocol.StreamingDriverCallRequest{UUID: id.String(), Method: method, Args: value.ToWireList(args)}
}

// fakeServerStream implements grpc.ServerStream for handlers invoked directly.
type fakeServerStream struct {
	ctx context.Context

	mu     sync.Mutex
	header metadata.MD
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func (f *fakeServerStream) SetHeader(md metadata.MD) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.header = metadata.Join(f.header, md)

	return nil
}

func (f *fakeServerStream) SendHeader(md metadata.MD) error {
	return f.SetHeader(md)
}

func (*fakeServerStream) SetTrailer(metadata.MD) {}

func (*fakeServerStream) SendMsg(any) error { return nil }

func (*fakeServerStream) RecvMsg(any) error { return nil }

func (f *fakeServerStream) Header() metadata.MD {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.header
}

// fakeCallStream collects the results of a streaming call.
type fakeCallStream struct {
	fakeServerStream

	sent    []*protocol.StreamingDriverCallResponse
	sendErr error
}

func newFakeCallStream(ctx context.Context) *fakeCallStream {
	return &fakeCallStream{fakeServerStream: fakeServerStream{ctx: ctx}}
}

func (f *fakeCallStream) Send(resp *protocol.StreamingDriverCallResponse) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, resp)

	return nil
}

func (f *fakeCallStream) results() []value.Value {
	out := make([]value.Value, 0, len(f.sent))

	for _, resp := range f.sent {
		v, err := value.FromWire(resp.Result)
		if err != nil {
			panic(err)
		}

		out = append(out, v)
	}

	return out
}

var _ grpc.ServerStreamingServer[protocol.StreamingDriverCallResponse] = (*fakeCallStream)(nil)

// fakeRouterStream feeds frames from in and collects the frames sent back.
// Closing in ends the inbound stream with io.EOF; cancelling the context
// fails it.
type fakeRouterStream struct {
	fakeServerStream

	in      chan *protocol.StreamRequest
	sendErr error

	sentMu sync.Mutex
	sent   []*protocol.StreamResponse
}

func newFakeRouterStream(ctx context.Context, target driver.RouteTarget) *fakeRouterStream {
	encoded, err := target.Encode()
	if err != nil {
		panic(err)
	}

	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(protocol.MetadataRequest, encoded))

	return &fakeRouterStream{
		fakeServerStream: fakeServerStream{ctx: ctx},
		in:               make(chan *protocol.StreamRequest, 16),
	}
}

func (f *fakeRouterStream) Recv() (*protocol.StreamRequest, error) {
	select {
	case req, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}

		return req, nil
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

func (f *fakeRouterStream) Send(resp *protocol.StreamResponse) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.sentMu.Lock()
	defer f.sentMu.Unlock()

	f.sent = append(f.sent, resp)

	return nil
}

func (f *fakeRouterStream) frames() []*protocol.StreamResponse {
	f.sentMu.Lock()
	defer f.sentMu.Unlock()

	return append([]*protocol.StreamResponse(nil), f.sent...)
}

var _ grpc.BidiStreamingServer[protocol.StreamRequest, protocol.StreamResponse] = (*fakeRouterStream)(nil)
