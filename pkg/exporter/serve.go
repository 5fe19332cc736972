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
	"errors"
	"fmt"
	"net"

	ggrpc "google.golang.org/grpc"

	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
)

// ServeOption configures the gRPC server started by the Serve methods.
type ServeOption func(*serveOptions)

type serveOptions struct {
	security   grpc.SecurityProvider
	serverOpts []ggrpc.ServerOption
}

// WithSecurity sets the transport security of the server. The server is
// insecure otherwise.
func WithSecurity(provider grpc.SecurityProvider) ServeOption {
	return func(o *serveOptions) {
		o.security = provider
	}
}

func WithServerOptions(opts ...ggrpc.ServerOption) ServeOption {
	return func(o *serveOptions) {
		o.serverOpts = append(o.serverOpts, opts...)
	}
}

// Server is a running listener serving both services of a session.
type Server struct {
	srv  *grpc.Server
	addr net.Addr
	done chan struct{}
	err  error
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Wait blocks until the server has stopped and returns the serve error, if any.
func (s *Server) Wait() error {
	<-s.done

	return s.err
}

// ServeUnix binds a unix socket at path, replacing a stale one.
func (s *Session) ServeUnix(ctx context.Context, path string, opts ...ServeOption) (*Server, error) {
	lis, err := grpc.ListenUnix(ctx, path)
	if err != nil {
		return nil, err
	}

	return s.ServeListener(ctx, lis, opts...)
}

// ServeTCP binds a TCP address such as "127.0.0.1:0".
func (s *Session) ServeTCP(ctx context.Context, addr string, opts ...ServeOption) (*Server, error) {
	lis, err := grpc.ListenTCP(ctx, addr)
	if err != nil {
		return nil, err
	}

	return s.ServeListener(ctx, lis, opts...)
}

// ServeListener serves the ExporterService and RouterService on lis. It
// returns once serving has started; the server stops gracefully when ctx is
// cancelled. The listener is closed on error.
func (s *Session) ServeListener(ctx context.Context, lis net.Listener, opts ...ServeOption) (*Server, error) {
	o := &serveOptions{}
	for _, opt := range opts {
		opt(o)
	}

	serverOpts := o.serverOpts

	if o.security != nil {
		creds, err := o.security.GetServerCredentials(ctx)
		if err != nil {
			_ = lis.Close()

			return nil, fmt.Errorf("server credentials: %w", err)
		}

		serverOpts = append(serverOpts, creds)
	}

	srv := grpc.NewServer(lis.Addr().String(), s.logger, grpc.WithServerOptions(serverOpts...))
	srv.RegisterService(&protocol.ExporterService_ServiceDesc, NewExporterService(s))
	srv.RegisterService(&protocol.RouterService_ServiceDesc, NewRouterService(s))

	server := &Server{
		srv:  srv,
		addr: lis.Addr(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(server.done)

		if err := srv.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error().Err(err).Str("addr", server.addr.String()).Msg("Server failed")
			server.err = err
		}
	}()

	context.AfterFunc(ctx, func() {
		srv.Stop(context.WithoutCancel(ctx))
	})

	return server, nil
}
