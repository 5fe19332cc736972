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

import "errors"

var (
	// ErrMethodNotFound is returned when a driver does not export the requested method.
	ErrMethodNotFound = errors.New("method not found")
	// ErrInvalidArgument is returned when call arguments have the wrong count or kind.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceNotFound is returned when a resource handle is unknown or already taken.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrMalformedRoute is returned when a route target cannot be decoded.
	ErrMalformedRoute = errors.New("malformed route target")
	// ErrUnknownDriverType is returned when a configuration names an unregistered driver type.
	ErrUnknownDriverType = errors.New("unknown driver type")
)
