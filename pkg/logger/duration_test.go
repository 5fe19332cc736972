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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric duration (nanoseconds)", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "complex duration string", input: `"1h30m45s"`, expected: Duration(time.Hour + 30*time.Minute + 45*time.Second)},
		{name: "invalid duration string", input: `"invalid"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidDuration)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var holder struct {
		Timeout Duration `yaml:"timeout"`
		Count   Duration `yaml:"count"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("timeout: 250ms\ncount: 1000\n"), &holder))
	assert.Equal(t, Duration(250*time.Millisecond), holder.Timeout)
	assert.Equal(t, Duration(time.Microsecond), holder.Count)

	err := yaml.Unmarshal([]byte("timeout: [1, 2]\n"), &holder)
	assert.ErrorIs(t, err, errInvalidDuration)
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(data))
}

func TestOTelConfig_Unmarshaling(t *testing.T) {
	configJSON := `{
		"enabled": true,
		"endpoint": "localhost:4317",
		"service_name": "test-service",
		"batch_timeout": "10s",
		"insecure": true,
		"headers": {"x-api-key": "test-key"}
	}`

	configYAML := `
enabled: true
endpoint: localhost:4317
service_name: test-service
batch_timeout: 10s
insecure: true
headers:
  x-api-key: test-key
`

	var fromJSON, fromYAML OTelConfig

	require.NoError(t, json.Unmarshal([]byte(configJSON), &fromJSON))
	require.NoError(t, yaml.Unmarshal([]byte(configYAML), &fromYAML))

	for _, config := range []OTelConfig{fromJSON, fromYAML} {
		assert.True(t, config.Enabled)
		assert.Equal(t, "localhost:4317", config.Endpoint)
		assert.Equal(t, "test-service", config.ServiceName)
		assert.Equal(t, Duration(10*time.Second), config.BatchTimeout)
		assert.True(t, config.Insecure)
		assert.Equal(t, "test-key", config.Headers["x-api-key"])
	}
}
