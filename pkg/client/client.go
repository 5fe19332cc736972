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

// Package client talks to an exporter: it reads the driver report, invokes
// driver methods and opens byte streams to devices.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/google/uuid"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

const defaultMaxRetries = 3

type options struct {
	security grpc.SecurityProvider
	dialOpts []ggrpc.DialOption
	logger   logger.Logger
}

// Option configures a Client.
type Option func(*options)

// WithSecurity sets the transport credentials used by Dial.
func WithSecurity(provider grpc.SecurityProvider) Option {
	return func(o *options) {
		o.security = provider
	}
}

// WithDialOptions appends raw gRPC dial options used by Dial.
func WithDialOptions(opts ...ggrpc.DialOption) Option {
	return func(o *options) {
		o.dialOpts = append(o.dialOpts, opts...)
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// Client is a connection to one exporter.
type Client struct {
	conn     *grpc.Client
	exporter protocol.ExporterServiceClient
	router   protocol.RouterServiceClient
	logger   logger.Logger
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.NewTestLogger()
	}

	return o
}

// Dial connects to the exporter at target, either unix://<path> or host:port.
func Dial(ctx context.Context, target string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	conn, err := grpc.NewClient(ctx, grpc.ClientConfig{
		Address:          target,
		SecurityProvider: o.security,
		MaxRetries:       defaultMaxRetries,
		DialOptions:      o.dialOpts,
	})
	if err != nil {
		return nil, err
	}

	c := newClient(conn.GetConnection(), o)
	c.conn = conn

	return c, nil
}

// New wraps an existing connection. Close does not close cc.
func New(cc ggrpc.ClientConnInterface, opts ...Option) *Client {
	return newClient(cc, newOptions(opts))
}

func newClient(cc ggrpc.ClientConnInterface, o *options) *Client {
	return &Client{
		exporter: protocol.NewExporterServiceClient(cc),
		router:   protocol.NewRouterServiceClient(cc),
		logger:   o.logger.WithComponent("client"),
	}
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetReport returns the exporter identity and its driver tree.
func (c *Client) GetReport(ctx context.Context) (*protocol.GetReportResponse, error) {
	return c.exporter.GetReport(ctx, &emptypb.Empty{})
}

// Call invokes method on the driver id and returns its result.
func (c *Client) Call(ctx context.Context, id uuid.UUID, method string, args ...value.Value) (value.Value, error) {
	resp, err := c.exporter.DriverCall(ctx, &protocol.DriverCallRequest{
		UUID:   id.String(),
		Method: method,
		Args:   value.ToWireList(args),
	})
	if err != nil {
		return nil, err
	}

	v, err := value.FromWire(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("bad result from %s.%s: %w", id, method, err)
	}

	return v, nil
}

// StreamingCall invokes a streaming method on the driver id. Stopping the
// iteration early cancels the call.
func (c *Client) StreamingCall(ctx context.Context, id uuid.UUID, method string, args ...value.Value) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := c.exporter.StreamingDriverCall(ctx, &protocol.StreamingDriverCallRequest{
			UUID:   id.String(),
			Method: method,
			Args:   value.ToWireList(args),
		})
		if err != nil {
			yield(nil, err)

			return
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			v, err := value.FromWire(resp.Result)
			if err != nil {
				yield(nil, fmt.Errorf("bad result from %s.%s: %w", id, method, err))

				return
			}

			if !yield(v, nil) {
				return
			}
		}
	}
}

// Reset asks the exporter to acknowledge a session reset.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.exporter.Reset(ctx, &protocol.ResetRequest{})

	return err
}

// Stream opens a byte stream to target. The returned Conn must be closed.
func (c *Client) Stream(ctx context.Context, target driver.RouteTarget) (*Conn, error) {
	encoded, err := target.Encode()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	stream, err := c.router.Stream(metadata.AppendToOutgoingContext(ctx, protocol.MetadataRequest, encoded))
	if err != nil {
		cancel()

		return nil, err
	}

	c.logger.Debug().Str("target", target.String()).Msg("Stream opened")

	return &Conn{stream: stream, cancel: cancel}, nil
}
