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
	"fmt"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

// DefaultSocketPath is used when no listener is configured.
const DefaultSocketPath = "/run/jumpstarter/exporter.sock"

// ListenConfig selects where the exporter serves. Both may be set.
type ListenConfig struct {
	Unix    string `json:"unix,omitempty" yaml:"unix,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// CaptureConfig enables frame capture when Path is set.
type CaptureConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Config is the exporter configuration file.
type Config struct {
	UUID     string                           `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Labels   map[string]string                `json:"labels,omitempty" yaml:"labels,omitempty"`
	Listen   ListenConfig                     `json:"listen" yaml:"listen"`
	Security grpc.SecurityConfig              `json:"security" yaml:"security"`
	Logging  *logger.Config                   `json:"logging,omitempty" yaml:"logging,omitempty"`
	Capture  CaptureConfig                    `json:"capture" yaml:"capture"`
	Export   map[string]driver.InstanceConfig `json:"export" yaml:"export"`
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.UUID != "" {
		if _, err := uuid.Parse(c.UUID); err != nil {
			return fmt.Errorf("%w: uuid %q: %w", errInvalidConfig, c.UUID, err)
		}
	}

	if c.Listen.Unix == "" && c.Listen.Address == "" {
		c.Listen.Unix = DefaultSocketPath
	}

	switch c.Security.Mode {
	case "", grpc.SecurityModeNone, grpc.SecurityModeMTLS:
	default:
		return fmt.Errorf("%w: security mode %q", errInvalidConfig, c.Security.Mode)
	}

	if c.Security.Mode == grpc.SecurityModeMTLS && c.Security.Role == "" {
		c.Security.Role = grpc.RoleExporter
	}

	if len(c.Export) == 0 {
		return fmt.Errorf("%w: nothing to export", errInvalidConfig)
	}

	for name, inst := range c.Export {
		if err := validateInstance(name, inst); err != nil {
			return err
		}
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return nil
}

func validateInstance(path string, inst driver.InstanceConfig) error {
	if inst.Type == "" {
		return fmt.Errorf("%w: %s: missing type", errInvalidConfig, path)
	}

	if inst.UUID != "" {
		if _, err := uuid.Parse(inst.UUID); err != nil {
			return fmt.Errorf("%w: %s: uuid %q: %w", errInvalidConfig, path, inst.UUID, err)
		}
	}

	for _, name := range inst.ChildNames() {
		if err := validateInstance(path+"."+name, inst.Children[name]); err != nil {
			return err
		}
	}

	return nil
}

// SessionOptions returns the session identity and labels from the config.
func (c *Config) SessionOptions() []SessionOption {
	opts := []SessionOption{WithSessionLabels(c.Labels)}

	if id, err := uuid.Parse(c.UUID); err == nil {
		opts = append(opts, WithSessionUUID(id))
	}

	return opts
}
