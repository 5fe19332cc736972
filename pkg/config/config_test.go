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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

var errNoUUID = errors.New("uuid is required")

type testListen struct {
	Unix    string `json:"unix" yaml:"unix"`
	Address string `json:"address" yaml:"address"`
}

type testConfig struct {
	UUID     string              `json:"uuid" yaml:"uuid"`
	Labels   map[string]string   `json:"labels" yaml:"labels"`
	Listen   testListen          `json:"listen" yaml:"listen"`
	Security grpc.SecurityConfig `json:"security" yaml:"security"`
	Timeout  logger.Duration     `json:"timeout" yaml:"timeout"`
	Retries  int                 `json:"retries" yaml:"retries"`
	Grace    time.Duration       `json:"grace" yaml:"grace"`
	Tags     []string            `json:"tags" yaml:"tags"`
	Debug    *bool               `json:"debug,omitempty" yaml:"debug,omitempty"`
	Skipped  string              `json:"-" yaml:"-"`
}

func (c *testConfig) Validate() error {
	if c.UUID == "" {
		return errNoUUID
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateYAML(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "exporter.yaml", `
uuid: 7b1c4c3e-7d1f-4a36-9d84-0d4f3f1c2a11
labels:
  board: rpi4
listen:
  unix: /run/jumpstarter/exporter.sock
security:
  mode: mtls
  cert_dir: /etc/jumpstarter/certs
  tls:
    cert_file: server.pem
    key_file: /abs/server-key.pem
    ca_file: ca.pem
timeout: 3s
`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "rpi4", cfg.Labels["board"])
	assert.Equal(t, "/run/jumpstarter/exporter.sock", cfg.Listen.Unix)
	assert.Equal(t, logger.Duration(3*time.Second), cfg.Timeout)
	assert.Equal(t, "/etc/jumpstarter/certs/server.pem", cfg.Security.TLS.CertFile)
	assert.Equal(t, "/abs/server-key.pem", cfg.Security.TLS.KeyFile)
	assert.Equal(t, "/etc/jumpstarter/certs/ca.pem", cfg.Security.TLS.CAFile)
	assert.Empty(t, cfg.Security.TLS.ClientCAFile)
}

func TestLoadAndValidateJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "exporter.json", `{"uuid": "abc", "listen": {"address": "127.0.0.1:8082"}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, "127.0.0.1:8082", cfg.Listen.Address)
}

func TestLoadAndValidateRunsValidator(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "exporter.yml", "labels: {a: b}\n")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	assert.ErrorIs(t, err, errNoUUID)
}

func TestLoadAndValidateErrors(t *testing.T) {
	ctx := context.Background()

	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg testConfig
	assert.ErrorIs(t, NewConfig(nil).LoadAndValidate(ctx, "x.yaml", &cfg), errInvalidConfigSource)

	t.Setenv("CONFIG_SOURCE", "")
	require.Error(t, NewConfig(nil).LoadAndValidate(ctx, filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	bad := writeFile(t, "bad.json", "{")
	require.Error(t, NewConfig(nil).LoadAndValidate(ctx, bad, &cfg))

	var c Config
	assert.ErrorIs(t, c.normalizeSecurityConfig(cfg), errInvalidConfigPtr)
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("JUMPSTARTER_UUID", "env-uuid")
	t.Setenv("JUMPSTARTER_LABELS", `{"board":"beaglebone"}`)
	t.Setenv("JUMPSTARTER_LISTEN_ADDRESS", ":8082")
	t.Setenv("JUMPSTARTER_SECURITY_MODE", "none")
	t.Setenv("JUMPSTARTER_TIMEOUT", "250ms")
	t.Setenv("JUMPSTARTER_RETRIES", "4")
	t.Setenv("JUMPSTARTER_GRACE", "2s")
	t.Setenv("JUMPSTARTER_TAGS", "a, b")
	t.Setenv("JUMPSTARTER_DEBUG", "true")
	t.Setenv("JUMPSTARTER_SKIPPED", "ignored")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "env-uuid", cfg.UUID)
	assert.Equal(t, map[string]string{"board": "beaglebone"}, cfg.Labels)
	assert.Equal(t, ":8082", cfg.Listen.Address)
	assert.Equal(t, grpc.SecurityModeNone, cfg.Security.Mode)
	assert.Equal(t, logger.Duration(250*time.Millisecond), cfg.Timeout)
	assert.Equal(t, 4, cfg.Retries)
	assert.Equal(t, 2*time.Second, cfg.Grace)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	require.NotNil(t, cfg.Debug)
	assert.True(t, *cfg.Debug)
	assert.Empty(t, cfg.Skipped)
}

func TestEnvConfigLoaderDocument(t *testing.T) {
	t.Setenv("LAB_CONFIG_YAML", "uuid: from-yaml\nretries: 2\n")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(nil, "LAB_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "from-yaml", cfg.UUID)
	assert.Equal(t, 2, cfg.Retries)

	t.Setenv("LAB_CONFIG_YAML", "")
	t.Setenv("LAB_CONFIG_JSON", `{"uuid": "from-json"}`)

	cfg = testConfig{}
	require.NoError(t, NewEnvConfigLoader(nil, "LAB_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "from-json", cfg.UUID)
}

func TestEnvConfigLoaderRejectsBadValues(t *testing.T) {
	t.Setenv("BAD_RETRIES", "many")

	var cfg testConfig
	require.Error(t, NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", &cfg))

	var notStruct int
	assert.ErrorIs(t, NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", &notStruct), ErrDstMustBePointerToStruct)
	assert.ErrorIs(t, NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", cfg), ErrDstMustBeNonNilPointer)
}
