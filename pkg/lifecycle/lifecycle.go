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

// Package lifecycle holds the process setup shared by jumpstarter commands:
// component loggers, telemetry providers and signal handling.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/version"
)

// CreateComponentLogger creates a logger for a specific component. A nil
// config uses logger.DefaultConfig.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	log, err := logger.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return log.WithComponent(component), nil
}

// ShutdownLogger flushes any pending log export.
func ShutdownLogger() error {
	return logger.Shutdown()
}

// Telemetry owns the tracer and meter providers of a process.
type Telemetry struct {
	shutdown []func(context.Context) error
}

// StartTelemetry installs the global tracer and meter providers. Metrics are
// only exported when OTel is enabled in config. The returned context carries
// the process root span.
func StartTelemetry(ctx context.Context, service string, config *logger.Config, log logger.Logger) (*Telemetry, context.Context, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	t := &Telemetry{}

	tp, ctx, span, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    service,
		ServiceVersion: version.GetVersion(),
		Logger:         log,
		OTel:           &config.OTel,
	})
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	t.shutdown = append(t.shutdown, func(ctx context.Context) error {
		span.End()

		return tp.Shutdown(ctx)
	})

	// the meter provider is flushed by ShutdownLogger
	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    service,
		ServiceVersion: version.GetVersion(),
		OTel:           &config.OTel,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		log.Debug().Msg("OTel metrics export disabled")
	case err != nil:
		_ = t.Shutdown(ctx)

		return nil, ctx, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return t, ctx, nil
}

// Shutdown ends the root span and flushes the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	for i := len(t.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdown[i](ctx))
	}

	t.shutdown = nil

	return errors.Join(errs...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
