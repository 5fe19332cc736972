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

// Package protocol holds the jumpstarter.v1 wire messages, the gRPC service
// descriptors for the exporter and router services, and the JSON codec they
// are carried with.
//
// Messages travel as JSON under the "json" content-subtype, so the wire is not
// interoperable with clients of the protobuf-encoded jumpstarter.v1 services.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// MetadataRequest is the call metadata key holding the JSON route target of a Stream call.
	MetadataRequest = "request"
)

// FrameType classifies a Stream frame.
type FrameType int32

const (
	FrameTypeData      FrameType = 0x00
	FrameTypeRstStream FrameType = 0x03
	FrameTypePing      FrameType = 0x06
	FrameTypeGoAway    FrameType = 0x07
)

func (f FrameType) String() string {
	switch f {
	case FrameTypeData:
		return "DATA"
	case FrameTypeRstStream:
		return "RST_STREAM"
	case FrameTypePing:
		return "PING"
	case FrameTypeGoAway:
		return "GOAWAY"
	default:
		return fmt.Sprintf("FrameType(%d)", int32(f))
	}
}

// GetReportResponse describes an exporter and every driver it exposes.
type GetReportResponse struct {
	UUID    string                  `json:"uuid"`
	Labels  map[string]string       `json:"labels,omitempty"`
	Reports []*DriverInstanceReport `json:"reports"`
}

// DriverInstanceReport describes one driver. ParentUUID is absent for the root.
type DriverInstanceReport struct {
	UUID       string            `json:"uuid"`
	ParentUUID *string           `json:"parent_uuid,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

type DriverCallRequest struct {
	UUID   string            `json:"uuid"`
	Method string            `json:"method"`
	Args   []*structpb.Value `json:"args,omitempty"`
}

type DriverCallResponse struct {
	UUID   string          `json:"uuid"`
	Result *structpb.Value `json:"result"`
}

type StreamingDriverCallRequest struct {
	UUID   string            `json:"uuid"`
	Method string            `json:"method"`
	Args   []*structpb.Value `json:"args,omitempty"`
}

type StreamingDriverCallResponse struct {
	UUID   string          `json:"uuid"`
	Result *structpb.Value `json:"result"`
}

type LogStreamResponse struct {
	UUID     string `json:"uuid"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type ResetRequest struct{}

type ResetResponse struct{}

// StreamRequest is a frame sent from the remote peer towards a device.
type StreamRequest struct {
	Payload   []byte    `json:"payload,omitempty"`
	FrameType FrameType `json:"frame_type"`
}

// StreamResponse is a frame sent from a device towards the remote peer.
type StreamResponse struct {
	Payload   []byte    `json:"payload,omitempty"`
	FrameType FrameType `json:"frame_type"`
}
