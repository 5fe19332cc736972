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
)

// Registry maps device identities to drivers. It is built once from a tree
// and never modified, so reads need no locking.
type Registry struct {
	devices map[uuid.UUID]driver.Driver
}

// BuildRegistry enumerates tree once. A UUID seen twice fails with
// ErrDuplicateDevice.
func BuildRegistry(tree driver.Tree) (*Registry, error) {
	nodes := tree.Enumerate()
	devices := make(map[uuid.UUID]driver.Driver, len(nodes))

	for _, node := range nodes {
		if _, exists := devices[node.UUID]; exists {
			return nil, fmt.Errorf("%w: %s (%q)", ErrDuplicateDevice, node.UUID, node.Name)
		}

		devices[node.UUID] = node.Driver
	}

	return &Registry{devices: devices}, nil
}

// Lookup returns the driver registered under id.
func (r *Registry) Lookup(id uuid.UUID) (driver.Driver, bool) {
	d, ok := r.devices[id]

	return d, ok
}

// Len returns the number of registered drivers.
func (r *Registry) Len() int {
	return len(r.devices)
}
