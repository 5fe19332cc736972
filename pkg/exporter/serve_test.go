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
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

func echoTree() (*driver.Base, driver.Tree) {
	root := driver.NewBase()
	root.ExportCall("ping", func(context.Context, []value.Value) (value.Value, error) {
		return value.String("pong"), nil
	})
	root.ExportStream("echo", func(context.Context) (driver.Channel, error) {
		local, remote := driver.Pipe()

		go func() {
			_, _ = io.Copy(local, local)
			_ = local.CloseWrite()
		}()

		return driver.NewConnChannel(remote), nil
	})

	return root, driver.NewTree(root)
}

func dial(t *testing.T, target string) *ggrpc.ClientConn {
	t.Helper()

	conn, err := ggrpc.NewClient(target, ggrpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestServeUnix(t *testing.T) {
	root, tree := echoTree()

	s, err := NewSession(tree)
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "exporter.sock")

	srv, err := s.ServeUnix(ctx, path, WithSecurity(&grpc.NoSecurityProvider{}))
	require.NoError(t, err)

	conn := dial(t, "unix://"+path)
	client := protocol.NewExporterServiceClient(conn)

	report, err := client.GetReport(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, s.UUID().String(), report.UUID)
	require.Len(t, report.Reports, 1)

	resp, err := client.DriverCall(ctx, callRequest(root.UUID(), "ping"))
	require.NoError(t, err)

	got, err := value.FromWire(resp.Result)
	require.NoError(t, err)
	assert.Equal(t, value.String("pong"), got)

	encoded, err := driver.DriverRoute(root.UUID(), "echo").Encode()
	require.NoError(t, err)

	stream, err := protocol.NewRouterServiceClient(conn).Stream(
		metadata.AppendToOutgoingContext(ctx, protocol.MetadataRequest, encoded))
	require.NoError(t, err)

	require.NoError(t, stream.Send(&protocol.StreamRequest{FrameType: protocol.FrameTypeData, Payload: []byte("hello")}))
	require.NoError(t, stream.CloseSend())

	var echoed []byte

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		if frame.FrameType == protocol.FrameTypeGoAway {
			continue
		}

		echoed = append(echoed, frame.Payload...)
	}

	assert.Equal(t, "hello", string(echoed))

	cancel()
	require.NoError(t, srv.Wait())
}

func TestServeTCP(t *testing.T) {
	_, tree := echoTree()

	s, err := NewSession(tree)
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(context.Background())

	srv, err := s.ServeTCP(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	client := protocol.NewExporterServiceClient(dial(t, srv.Addr().String()))

	_, err = client.Reset(ctx, &protocol.ResetRequest{})
	require.NoError(t, err)

	cancel()
	require.NoError(t, srv.Wait())
}
