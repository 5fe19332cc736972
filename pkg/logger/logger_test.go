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
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		want    zerolog.Level
		wantErr bool
	}{
		{name: "debug flag wins", config: &Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
		{name: "explicit level", config: &Config{Level: "warn"}, want: zerolog.WarnLevel},
		{name: "default level", config: &Config{}, want: zerolog.InfoLevel},
		{name: "bad level", config: &Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(context.Background(), tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, GetLevel(l))
		})
	}
}

func TestSetDebug(t *testing.T) {
	l, err := New(context.Background(), &Config{Output: "stderr"})
	require.NoError(t, err)

	l.SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLevel(l))

	l.SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLevel(l))
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer

	l := Wrap(zerolog.New(&buf))
	l.WithComponent("router").WithFields(map[string]interface{}{"stream": "abc"}).Info().Msg("opened")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "router", entry["component"])
	assert.Equal(t, "abc", entry["stream"])
	assert.Equal(t, "opened", entry["message"])
}

func TestNewTestLoggerDiscards(t *testing.T) {
	l := NewTestLogger()
	l.Info().Msg("dropped")
	l.WithComponent("x").Error().Msg("dropped")

	assert.Equal(t, zerolog.Disabled, GetLevel(l))
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	n, err := NewMultiWriter(&a, &b).Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "line\n", a.String())
	assert.Equal(t, "line\n", b.String())
}
