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

package grpc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

func TestServerServesHealthOverUnixSocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	socket := filepath.Join(t.TempDir(), "exporter.sock")
	addr := "unix://" + socket

	srv := NewServer(addr, logger.NewTestLogger(), WithTelemetryDisabled())

	lis, err := Listen(ctx, addr)
	require.NoError(t, err)

	served := make(chan error, 1)

	go func() { served <- srv.Serve(lis) }()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	srv.Stop(ctx)
	require.NoError(t, <-served)
}

func TestListenRemovesStaleSocket(t *testing.T) {
	ctx := context.Background()
	socket := filepath.Join(t.TempDir(), "stale.sock")

	first, err := ListenUnix(ctx, socket)
	require.NoError(t, err)

	// leave the file behind the way a crashed process would
	if ul, ok := first.(interface{ SetUnlinkOnClose(bool) }); ok {
		ul.SetUnlinkOnClose(false)
	}

	require.NoError(t, first.Close())

	second, err := ListenUnix(ctx, socket)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		in      string
		network string
		address string
	}{
		{"unix:///run/jumpstarter/exporter.sock", "unix", "/run/jumpstarter/exporter.sock"},
		{"unix:/tmp/x.sock", "unix", "/tmp/x.sock"},
		{"127.0.0.1:8082", "tcp", "127.0.0.1:8082"},
		{":0", "tcp", ":0"},
	}

	for _, tt := range tests {
		network, address := SplitAddress(tt.in)
		assert.Equal(t, tt.network, network, tt.in)
		assert.Equal(t, tt.address, address, tt.in)
	}
}

func TestRecoveryInterceptors(t *testing.T) {
	log := logger.NewTestLogger()

	_, err := RecoveryInterceptor(log)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))

	err = StreamRecoveryInterceptor(log)(nil, nil, &grpc.StreamServerInfo{FullMethod: "/x/Z"},
		func(interface{}, grpc.ServerStream) error { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingInterceptorInjectsLogger(t *testing.T) {
	log := logger.NewTestLogger()

	_, err := LoggingInterceptor(log)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			assert.Same(t, log, GetLogger(ctx, nil))
			return nil, nil
		})
	require.NoError(t, err)

	assert.NotNil(t, FromContext(context.Background()))
}

func TestClientReachesServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := "unix://" + filepath.Join(t.TempDir(), "client.sock")

	srv := NewServer(addr, logger.NewTestLogger(), WithTelemetryDisabled())

	lis, err := Listen(ctx, addr)
	require.NoError(t, err)

	go func() { _ = srv.Serve(lis) }()

	defer srv.Stop(ctx)

	client, err := NewClient(ctx, ClientConfig{
		Address:          addr,
		SecurityProvider: &NoSecurityProvider{},
		MaxRetries:       3,
	})
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	resp, err := healthpb.NewHealthClient(client.GetConnection()).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestClientRequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{})
	assert.ErrorIs(t, err, errAddressRequired)
}
