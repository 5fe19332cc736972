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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/grpc/status"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
)

const meterName = "github.com/jumpstarter-dev/jumpstarter/pkg/exporter"

type metrics struct {
	calls   metric.Int64Counter
	frames  metric.Int64Counter
	bytes   metric.Int64Counter
	streams metric.Int64UpDownCounter
}

// newMetrics registers the instruments on the global meter provider. The
// provider is a no-op until logger.InitializeMetrics installs one, and a
// failed registration falls back to no-op instruments.
func newMetrics() *metrics {
	meter := otel.Meter(meterName)

	m := &metrics{}

	var err error

	if m.calls, err = meter.Int64Counter("jumpstarter.exporter.calls",
		metric.WithDescription("Driver calls handled, by method kind and status code")); err != nil {
		otel.Handle(err)
		m.calls = noop.Int64Counter{}
	}

	if m.frames, err = meter.Int64Counter("jumpstarter.router.frames",
		metric.WithDescription("Frames relayed by the router")); err != nil {
		otel.Handle(err)
		m.frames = noop.Int64Counter{}
	}

	if m.bytes, err = meter.Int64Counter("jumpstarter.router.bytes",
		metric.WithDescription("Payload bytes relayed by the router"),
		metric.WithUnit("By")); err != nil {
		otel.Handle(err)
		m.bytes = noop.Int64Counter{}
	}

	if m.streams, err = meter.Int64UpDownCounter("jumpstarter.router.streams",
		metric.WithDescription("Open router streams")); err != nil {
		otel.Handle(err)
		m.streams = noop.Int64UpDownCounter{}
	}

	return m
}

func (m *metrics) call(ctx context.Context, kind, method string, err error) {
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("method", method),
		attribute.String("code", status.Code(toStatus(err)).String()),
	))
}

func (m *metrics) frame(ctx context.Context, dir capture.Direction, frameType protocol.FrameType, size int) {
	attrs := metric.WithAttributes(
		attribute.String("direction", dir.String()),
		attribute.String("frame_type", frameType.String()),
	)

	m.frames.Add(ctx, 1, attrs)

	if size > 0 {
		m.bytes.Add(ctx, int64(size), attrs)
	}
}

func (m *metrics) streamOpened(ctx context.Context) {
	m.streams.Add(ctx, 1)
}

func (m *metrics) streamClosed(ctx context.Context) {
	m.streams.Add(ctx, -1)
}
