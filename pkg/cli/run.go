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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/client"
	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
	"github.com/jumpstarter-dev/jumpstarter/pkg/version"
)

const previewLen = 32

// Runner executes parsed commands against its standard streams.
type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger logger.Logger
	styles logStyles
}

func NewRunner(stdin io.Reader, stdout, stderr io.Writer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: log,
		styles: newLogStyles(),
	}
}

// Run executes cfg.
func (r *Runner) Run(ctx context.Context, cfg *CmdConfig) error {
	if cfg.Help {
		ShowHelp(r.stdout)

		return nil
	}

	switch cfg.SubCmd {
	case "report":
		return r.withClient(ctx, cfg, r.report)
	case "call":
		return r.withClient(ctx, cfg, r.call)
	case "stream":
		return r.withClient(ctx, cfg, r.stream)
	case "capture":
		return r.capture(cfg)
	case "generate-certs":
		return r.generateCerts(cfg)
	case "version":
		_, err := fmt.Fprintln(r.stdout, version.GetFullVersion())

		return err
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cfg.SubCmd)
	}
}

// Failure prints err in the error style.
func (r *Runner) Failure(err error) {
	_, _ = fmt.Fprintln(r.stderr, r.styles.error.Render("Error: "+err.Error()))
}

func (r *Runner) withClient(ctx context.Context, cfg *CmdConfig, fn func(context.Context, *CmdConfig, *client.Client) error) error {
	opts := []client.Option{client.WithLogger(r.logger)}

	if cfg.CertDir != "" {
		provider, err := grpc.NewSecurityProvider(ctx, &grpc.SecurityConfig{
			Mode:       grpc.SecurityModeMTLS,
			CertDir:    cfg.CertDir,
			ServerName: cfg.ServerName,
			Role:       grpc.RoleClient,
			TLS: grpc.TLSConfig{
				CertFile: "client.pem",
				KeyFile:  "client-key.pem",
				CAFile:   "ca.pem",
			},
		}, r.logger)
		if err != nil {
			return err
		}

		defer func() { _ = provider.Close() }()

		opts = append(opts, client.WithSecurity(provider))
	}

	c, err := client.Dial(ctx, cfg.Target, opts...)
	if err != nil {
		return err
	}

	defer func() { _ = c.Close() }()

	return fn(ctx, cfg, c)
}

func unaryContext(ctx context.Context, cfg *CmdConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, cfg.Timeout)
}

func (r *Runner) report(ctx context.Context, cfg *CmdConfig, c *client.Client) error {
	ctx, cancel := unaryContext(ctx, cfg)
	defer cancel()

	report, err := c.GetReport(ctx)
	if err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(r.stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	}

	r.printReport(report)

	return nil
}

func (r *Runner) printReport(report *protocol.GetReportResponse) {
	_, _ = fmt.Fprintf(r.stdout, "%s %s %s\n",
		r.styles.header.Render("Exporter"), report.UUID, r.styles.muted.Render(formatLabels(report.Labels)))

	t := r.styles.table("UUID", "PARENT", "LABELS")

	for _, d := range report.Reports {
		parent := "-"
		if d.ParentUUID != nil {
			parent = *d.ParentUUID
		}

		t.Row(d.UUID, parent, formatLabels(d.Labels))
	}

	_, _ = fmt.Fprintln(r.stdout, t.String())
}

func formatLabels(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))

	for _, k := range slices.Sorted(maps.Keys(labels)) {
		pairs = append(pairs, k+"="+labels[k])
	}

	return strings.Join(pairs, ",")
}

func (r *Runner) call(ctx context.Context, cfg *CmdConfig, c *client.Client) error {
	id, err := uuid.Parse(cfg.Device)
	if err != nil {
		return fmt.Errorf("%w: %w", errMissingDevice, err)
	}

	args, err := parseArgs(cfg.Args)
	if err != nil {
		return err
	}

	if cfg.Streaming {
		for v, err := range c.StreamingCall(ctx, id, cfg.Method, args...) {
			if err != nil {
				return err
			}

			if err := r.printValue(v); err != nil {
				return err
			}
		}

		return nil
	}

	ctx, cancel := unaryContext(ctx, cfg)
	defer cancel()

	v, err := c.Call(ctx, id, cfg.Method, args...)
	if err != nil {
		return err
	}

	return r.printValue(v)
}

// parseArgs decodes each argument as JSON, keeping it as a string when it is
// not valid JSON.
func parseArgs(raw []string) ([]value.Value, error) {
	args := make([]value.Value, 0, len(raw))

	for _, s := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			args = append(args, value.String(s))

			continue
		}

		v, err := value.FromAny(decoded)
		if err != nil {
			return nil, err
		}

		args = append(args, v)
	}

	return args, nil
}

func (r *Runner) printValue(v value.Value) error {
	out, err := json.Marshal(value.Any(v))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(r.stdout, string(out))

	return err
}

func (r *Runner) stream(ctx context.Context, cfg *CmdConfig, c *client.Client) error {
	id, err := uuid.Parse(cfg.Device)
	if err != nil {
		return fmt.Errorf("%w: %w", errMissingDevice, err)
	}

	target := driver.DriverRoute(id, cfg.Method)
	if cfg.Resource {
		target = driver.ResourceRoute(id)
	}

	conn, err := c.Stream(ctx, target)
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	if cfg.Resource {
		handle, err := conn.Resource()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(r.stderr, r.styles.info.Render("Resource handle:"), handle)
	}

	go func() {
		if _, err := io.Copy(conn, r.stdin); err != nil {
			r.logger.Debug().Err(err).Msg("Input copy stopped")
		}

		if err := conn.CloseWrite(); err != nil {
			r.logger.Debug().Err(err).Msg("Failed to close stream input")
		}
	}()

	_, err = io.Copy(r.stdout, conn)

	return err
}

type capturedFrame struct {
	Time      time.Time `json:"time"`
	Stream    string    `json:"stream"`
	Target    string    `json:"target"`
	Direction string    `json:"direction"`
	Frame     string    `json:"frame"`
	Payload   []byte    `json:"payload,omitempty"`
}

func (r *Runner) capture(cfg *CmdConfig) error {
	records, readErr := capture.ReadFile(cfg.File)
	if readErr != nil && len(records) == 0 {
		return readErr
	}

	if cfg.JSON {
		enc := json.NewEncoder(r.stdout)

		for _, rec := range records {
			if err := enc.Encode(capturedFrame{
				Time:      rec.Timestamp,
				Stream:    rec.StreamID,
				Target:    rec.Target,
				Direction: rec.Direction.String(),
				Frame:     rec.FrameType.String(),
				Payload:   rec.Payload,
			}); err != nil {
				return err
			}
		}
	} else {
		r.printCapture(records)
	}

	if readErr != nil {
		_, _ = fmt.Fprintln(r.stderr, r.styles.warning.Render("Capture truncated: "+readErr.Error()))
	}

	return nil
}

func (r *Runner) printCapture(records []capture.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(r.stderr, r.styles.warning.Render("No frames captured"))

		return
	}

	t := r.styles.table("TIME", "STREAM", "TARGET", "DIR", "FRAME", "BYTES", "PAYLOAD")

	for _, rec := range records {
		stream := rec.StreamID
		if len(stream) > 8 {
			stream = stream[:8]
		}

		t.Row(
			rec.Timestamp.Format(time.RFC3339Nano),
			stream,
			rec.Target,
			rec.Direction.String(),
			rec.FrameType.String(),
			strconv.Itoa(len(rec.Payload)),
			preview(rec.Payload),
		)
	}

	_, _ = fmt.Fprintln(r.stdout, t.String())
}

func preview(p []byte) string {
	if len(p) > previewLen {
		return strconv.Quote(string(p[:previewLen])) + "..."
	}

	return strconv.Quote(string(p))
}

func (r *Runner) generateCerts(cfg *CmdConfig) error {
	if err := grpc.GenerateCertificates(cfg.CertDir, cfg.Hosts...); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(r.stdout, r.styles.success.Render("Certificates written to "+cfg.CertDir))

	return nil
}
