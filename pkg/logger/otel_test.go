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

package logger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOTelConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=secret, tenant = lab")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "")

	config := DefaultOTelConfig()

	assert.Equal(t, defaultServiceName, config.ServiceName)
	assert.Equal(t, Duration(5*time.Second), config.BatchTimeout)
	assert.Equal(t, map[string]string{"x-api-key": "secret", "tenant": "lab"}, config.Headers)
	assert.False(t, config.Enabled)
}

func TestOTelWriterRequiresEnabledEndpoint(t *testing.T) {
	_, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: false})
	assert.ErrorIs(t, err, ErrOTelLoggingDisabled)

	_, err = NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestNewWithOTelEnabledButNoEndpoint(t *testing.T) {
	// without an endpoint the writer is skipped and plain logging still works
	l, err := New(context.Background(), &Config{OTel: OTelConfig{Enabled: true}})
	require.NoError(t, err)

	l.Info().Str("test", "value").Msg("no collector")
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	assert.ErrorIs(t, err, ErrOTelMetricsDisabled)
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	tp, ctx, span, err := InitializeTracing(context.Background(), TracingConfig{
		ServiceName: "exporter-test",
		Logger:      NewTestLogger(),
	})
	require.NoError(t, err)

	defer func() { _ = tp.Shutdown(context.Background()) }()
	defer span.End()

	assert.NotNil(t, ctx)
	assert.True(t, span.SpanContext().IsValid())
}

func TestMapZerologLevelToOTel(t *testing.T) {
	tests := []struct {
		zerologLevel string
		expected     string
	}{
		{"trace", "TRACE"},
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"fatal", "FATAL"},
		{"panic", "FATAL"},
		{"unknown", "INFO"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mapZerologLevelToOTel(tt.zerologLevel).String(), tt.zerologLevel)
	}
}

func TestFormatAttributeValue(t *testing.T) {
	assert.Equal(t, "null", formatAttributeValue(nil))
	assert.Equal(t, "true", formatAttributeValue(true))
	assert.Equal(t, "1.5", formatAttributeValue(1.5))
	assert.Equal(t, `{"a":1}`, formatAttributeValue(map[string]interface{}{"a": 1}))

	long := formatAttributeValue(strings.Repeat("x", maxAttributeValueLength+10))
	assert.Len(t, long, maxAttributeValueLength)
	assert.True(t, strings.HasSuffix(long, "..."))
}
