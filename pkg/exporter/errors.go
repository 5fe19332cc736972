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
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

var (
	// ErrDuplicateDevice is returned when a device tree holds the same UUID twice.
	ErrDuplicateDevice = errors.New("duplicate device uuid")
	// ErrDeviceNotFound is returned for an identity that is not in the registry.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrInvalidRoute is returned when stream routing metadata is missing or malformed.
	ErrInvalidRoute = errors.New("invalid route")
	// ErrChannelOpenFailed is returned when a driver refuses to open a channel.
	ErrChannelOpenFailed = errors.New("channel open failed")
	// ErrCallFailed matches every *CallError.
	ErrCallFailed = errors.New("call failed")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrReportFailed is returned when a driver cannot describe itself.
	ErrReportFailed = errors.New("report failed")

	errInvalidConfig = errors.New("invalid exporter config")
	errEmptyReport   = errors.New("driver returned no report")
)

// CallError is a failure raised by a driver during Call or StreamingCall.
type CallError struct {
	UUID   uuid.UUID
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s on %s failed: %v", e.Method, e.UUID, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func (*CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// toStatus maps an error to the gRPC status returned to clients. Statuses
// produced by drivers pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, driver.ErrMethodNotFound),
		errors.Is(err, driver.ErrResourceNotFound), errors.Is(err, fs.ErrNotExist):
		return codes.NotFound
	case errors.Is(err, ErrInvalidRoute), errors.Is(err, driver.ErrInvalidArgument),
		errors.Is(err, value.ErrUnsupportedKind):
		return codes.InvalidArgument
	case errors.Is(err, ErrSessionClosed):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, errors.ErrUnsupported):
		return codes.Unimplemented
	case errors.Is(err, ErrChannelOpenFailed):
		return codes.Unavailable
	case errors.Is(err, ErrDuplicateDevice):
		return codes.FailedPrecondition
	case errors.Is(err, ErrReportFailed):
		return codes.Internal
	default:
		return codes.Unknown
	}
}
