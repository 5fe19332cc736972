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

package driver

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// InstanceConfig describes one driver instance in an exporter configuration.
type InstanceConfig struct {
	Type     string                    `json:"type" yaml:"type"`
	UUID     string                    `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Labels   map[string]string         `json:"labels,omitempty" yaml:"labels,omitempty"`
	Config   map[string]any            `json:"config,omitempty" yaml:"config,omitempty"`
	Children map[string]InstanceConfig `json:"children,omitempty" yaml:"children,omitempty"`
}

// Decode copies the free-form config section into dst, which must be a
// pointer to a struct with yaml tags.
func (c InstanceConfig) Decode(dst any) error {
	if len(c.Config) == 0 {
		return nil
	}

	data, err := yaml.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", c.Type, err)
	}

	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s config: %w", c.Type, err)
	}

	return nil
}

// BaseOptions turns the identity and labels of the instance into Base options.
func (c InstanceConfig) BaseOptions() ([]BaseOption, error) {
	var opts []BaseOption

	if c.UUID != "" {
		id, err := uuid.Parse(c.UUID)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", c.UUID, err)
		}

		opts = append(opts, WithUUID(id))
	}

	if len(c.Labels) > 0 {
		opts = append(opts, WithLabels(c.Labels))
	}

	return opts, nil
}

// ChildNames returns the child names in sorted order.
func (c InstanceConfig) ChildNames() []string {
	return slices.Sorted(maps.Keys(c.Children))
}
