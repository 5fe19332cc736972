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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RouteKind selects what a byte stream is connected to.
type RouteKind string

const (
	// RouteDriver connects the stream to a stream method of a driver.
	RouteDriver RouteKind = "driver"
	// RouteResource connects the stream to a new in-memory resource owned by a driver.
	RouteResource RouteKind = "resource"
)

// RouteTarget addresses the device end of a byte stream. It travels as JSON in
// the "request" metadata of a Stream call.
type RouteTarget struct {
	Kind   RouteKind `json:"kind"`
	UUID   uuid.UUID `json:"uuid"`
	Method string    `json:"method,omitempty"`
}

// DriverRoute returns a target for the stream method of the driver identified by id.
func DriverRoute(id uuid.UUID, method string) RouteTarget {
	return RouteTarget{Kind: RouteDriver, UUID: id, Method: method}
}

// ResourceRoute returns a target for a new resource owned by the driver identified by id.
func ResourceRoute(id uuid.UUID) RouteTarget {
	return RouteTarget{Kind: RouteResource, UUID: id}
}

// ParseRouteTarget decodes and validates a JSON route target.
func ParseRouteTarget(raw string) (RouteTarget, error) {
	var t RouteTarget

	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return RouteTarget{}, fmt.Errorf("%w: %w", ErrMalformedRoute, err)
	}

	if err := t.Validate(); err != nil {
		return RouteTarget{}, err
	}

	return t, nil
}

// Validate checks that the target is complete for its kind.
func (t RouteTarget) Validate() error {
	if t.UUID == uuid.Nil {
		return fmt.Errorf("%w: missing uuid", ErrMalformedRoute)
	}

	switch t.Kind {
	case RouteDriver:
		if t.Method == "" {
			return fmt.Errorf("%w: driver route requires a method", ErrMalformedRoute)
		}
	case RouteResource:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedRoute, t.Kind)
	}

	return nil
}

// Encode returns the JSON form carried in request metadata.
func (t RouteTarget) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (t RouteTarget) String() string {
	if t.Kind == RouteDriver {
		return fmt.Sprintf("driver:%s/%s", t.UUID, t.Method)
	}

	return fmt.Sprintf("%s:%s", t.Kind, t.UUID)
}
