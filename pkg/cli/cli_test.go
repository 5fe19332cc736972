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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/exporter"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    CmdConfig
		wantErr error
	}{
		{
			name: "no arguments shows help",
			want: CmdConfig{Help: true},
		},
		{
			name: "report",
			args: []string{"report", "-json", "-target", "localhost:8082"},
			want: CmdConfig{SubCmd: "report", JSON: true, Target: "localhost:8082", Timeout: defaultTimeout},
		},
		{
			name: "call with args",
			args: []string{"call", "-timeout", "5s", "0b1d", "cycle", "5", "fast"},
			want: CmdConfig{
				SubCmd: "call", Target: DefaultTarget, Timeout: 5 * time.Second,
				Device: "0b1d", Method: "cycle", Args: []string{"5", "fast"},
			},
		},
		{
			name:    "call without method",
			args:    []string{"call", "0b1d"},
			wantErr: errMissingMethod,
		},
		{
			name: "stream resource",
			args: []string{"stream", "-resource", "9c2e"},
			want: CmdConfig{SubCmd: "stream", Target: DefaultTarget, Timeout: defaultTimeout, Resource: true, Device: "9c2e"},
		},
		{
			name:    "stream resource with method",
			args:    []string{"stream", "-resource", "9c2e", "connect"},
			wantErr: errResourceOnMethod,
		},
		{
			name:    "stream without device",
			args:    []string{"stream"},
			wantErr: errMissingDevice,
		},
		{
			name: "capture",
			args: []string{"capture", "frames.cbor"},
			want: CmdConfig{SubCmd: "capture", File: "frames.cbor"},
		},
		{
			name: "generate-certs",
			args: []string{"generate-certs", "-cert-dir", "/tmp/certs", "-host", "lab1, 10.0.0.2"},
			want: CmdConfig{SubCmd: "generate-certs", CertDir: "/tmp/certs", Hosts: []string{"lab1", "10.0.0.2"}},
		},
		{
			name:    "generate-certs without dir",
			args:    []string{"generate-certs"},
			wantErr: errMissingCertDir,
		},
		{
			name:    "unknown",
			args:    []string{"flash"},
			wantErr: errUnknownCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseFlags(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"5", "true", "null", `{"a":[1,"x"]}`, "ttyUSB0", `"quoted"`})
	require.NoError(t, err)

	assert.Equal(t, []value.Value{
		value.Number(5),
		value.Bool(true),
		value.Null{},
		value.Struct{"a": value.List{value.Number(1), value.String("x")}},
		value.String("ttyUSB0"),
		value.String("quoted"),
	}, args)
}

func serveExporter(t *testing.T) (string, *driver.Base) {
	t.Helper()

	root := driver.NewBase(driver.WithLabels(map[string]string{"board": "rpi4"}))
	root.ExportCall("add", func(_ context.Context, args []value.Value) (value.Value, error) {
		a, _ := value.AsNumber(args[0])
		b, _ := value.AsNumber(args[1])

		return value.Number(a + b), nil
	})
	root.ExportStream("echo", func(context.Context) (driver.Channel, error) {
		local, remote := driver.Pipe()

		go func() {
			_, _ = io.Copy(local, local)
			_ = local.CloseWrite()
		}()

		return driver.NewConnChannel(remote), nil
	})

	session, err := exporter.NewSession(driver.NewTree(root))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	path := filepath.Join(t.TempDir(), "exporter.sock")

	srv, err := session.ServeUnix(ctx, path)
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, srv.Wait())
		assert.NoError(t, session.Close())
	})

	return "unix://" + path, root
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfg, err := ParseFlags(args)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = NewRunner(strings.NewReader(stdin), &stdout, &stderr, nil).Run(ctx, cfg)

	return stdout.String(), stderr.String(), err
}

func TestRunReport(t *testing.T) {
	target, root := serveExporter(t)

	out, _, err := run(t, "", "report", "-target", target)
	require.NoError(t, err)
	assert.Contains(t, out, root.UUID().String())
	assert.Contains(t, out, "board=rpi4")

	out, _, err = run(t, "", "report", "-json", "-target", target)
	require.NoError(t, err)

	var report protocol.GetReportResponse
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Reports, 1)
	assert.Equal(t, root.UUID().String(), report.Reports[0].UUID)
}

func TestRunCall(t *testing.T) {
	target, root := serveExporter(t)

	out, _, err := run(t, "", "call", "-target", target, root.UUID().String(), "add", "2", "3")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, _, err = run(t, "", "call", "-target", target, "not-a-uuid", "add")
	require.ErrorIs(t, err, errMissingDevice)
}

func TestRunStream(t *testing.T) {
	target, root := serveExporter(t)

	out, _, err := run(t, "over the wire", "stream", "-target", target, root.UUID().String(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "over the wire", out)
}

func TestRunCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.cbor")

	rec, err := capture.NewFileRecorder(path)
	require.NoError(t, err)

	rec.Record(capture.Record{
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		StreamID:  "2f6c1f0e-0000-0000-0000-000000000000",
		Target:    "driver/echo",
		Direction: capture.DirectionToDevice,
		FrameType: protocol.FrameTypeData,
		Payload:   []byte("ping"),
	})
	require.NoError(t, rec.Close())

	out, _, err := run(t, "", "capture", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2f6c1f0e")
	assert.Contains(t, out, `"ping"`)
	assert.Contains(t, out, "IN")

	out, _, err = run(t, "", "capture", "-json", path)
	require.NoError(t, err)

	var frame capturedFrame
	require.NoError(t, json.Unmarshal([]byte(out), &frame))
	assert.Equal(t, "DATA", frame.Frame)
	assert.Equal(t, []byte("ping"), frame.Payload)

	_, _, err = run(t, "", "capture", filepath.Join(t.TempDir(), "missing.cbor"))
	require.Error(t, err)
}

func TestRunGenerateCerts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	out, _, err := run(t, "", "generate-certs", "-cert-dir", dir, "-host", "lab1")
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	for _, name := range []string{"ca.pem", "server.pem", "server-key.pem", "client.pem", "client-key.pem"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestRunHelp(t *testing.T) {
	out, _, err := run(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "jmp report")
}
