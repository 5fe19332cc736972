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

// Package composite provides a driver that only groups other drivers.
package composite

import "github.com/jumpstarter-dev/jumpstarter/pkg/driver"

const clientClass = "jumpstarter_driver_composite.client.CompositeClient"

// Composite has children and no methods of its own.
type Composite struct {
	*driver.Base
}

func New(opts ...driver.BaseOption) *Composite {
	opts = append([]driver.BaseOption{driver.WithClient(clientClass)}, opts...)

	return &Composite{Base: driver.NewBase(opts...)}
}
