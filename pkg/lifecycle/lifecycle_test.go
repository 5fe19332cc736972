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

package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger(context.Background(), "exporter", &logger.Config{Level: "warn", Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = CreateComponentLogger(context.Background(), "exporter", &logger.Config{Level: "loud"})
	require.Error(t, err)
}

func TestStartTelemetryWithoutExport(t *testing.T) {
	tel, ctx, err := StartTelemetry(context.Background(), "jumpstarter-test", &logger.Config{}, logger.NewTestLogger())
	require.NoError(t, err)

	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	require.NoError(t, tel.Shutdown(context.Background()))
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSignalContextCancels(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())

	ctx, stop := SignalContext(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
