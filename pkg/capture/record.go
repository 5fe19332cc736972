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

// Package capture records the frames relayed over router streams to a CBOR
// file for later inspection.
package capture

import (
	"time"

	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
)

// Direction of a captured frame relative to the device.
type Direction uint8

const (
	// DirectionToDevice is a frame sent by the client.
	DirectionToDevice Direction = 0
	// DirectionToClient is a frame produced by the device.
	DirectionToClient Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionToDevice:
		return "IN"
	case DirectionToClient:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Record is one captured frame. CBOR encoding uses integer keys.
type Record struct {
	Timestamp time.Time          `cbor:"1,keyasint"`
	StreamID  string             `cbor:"2,keyasint"`
	Target    string             `cbor:"3,keyasint"`
	Direction Direction          `cbor:"4,keyasint"`
	FrameType protocol.FrameType `cbor:"5,keyasint"`
	Payload   []byte             `cbor:"6,keyasint,omitempty"`
}

// Recorder receives frames from the router. Implementations must be safe
// for concurrent use and should not block.
type Recorder interface {
	Record(rec Record)
	Close() error
}

// NoopRecorder discards every record.
type NoopRecorder struct{}

func (NoopRecorder) Record(Record) {}

func (NoopRecorder) Close() error { return nil }

var _ Recorder = NoopRecorder{}
