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
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

// ExporterService dispatches report and call RPCs to the drivers of a session.
type ExporterService struct {
	protocol.UnimplementedExporterServiceServer

	session *Session
	logger  logger.Logger
}

func NewExporterService(session *Session) *ExporterService {
	return &ExporterService{
		session: session,
		logger:  session.logger.WithComponent("dispatcher"),
	}
}

// GetReport enumerates the live tree and asks every driver to describe
// itself. Any failing driver fails the whole report.
func (e *ExporterService) GetReport(_ context.Context, _ *emptypb.Empty) (*protocol.GetReportResponse, error) {
	nodes, err := e.session.Enumerate()
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &protocol.GetReportResponse{
		UUID:    e.session.UUID().String(),
		Labels:  e.session.Labels(),
		Reports: make([]*protocol.DriverInstanceReport, 0, len(nodes)),
	}

	for _, node := range nodes {
		report, err := node.Driver.Report(node.Parent, node.Name)
		if err == nil && report == nil {
			err = errEmptyReport
		}

		if err != nil {
			e.logger.Error().Err(err).Str("uuid", node.UUID.String()).Msg("Driver report failed")

			return nil, status.Error(codes.Internal, fmt.Errorf("%w: %s: %w", ErrReportFailed, node.UUID, err).Error())
		}

		resp.Reports = append(resp.Reports, reportToWire(report))
	}

	return resp, nil
}

func reportToWire(r *driver.Report) *protocol.DriverInstanceReport {
	out := &protocol.DriverInstanceReport{
		UUID:   r.UUID.String(),
		Labels: r.Labels,
	}

	if r.ParentUUID != nil {
		parent := r.ParentUUID.String()
		out.ParentUUID = &parent
	}

	return out
}

// DriverCall invokes one method and returns its single result.
func (e *ExporterService) DriverCall(ctx context.Context, req *protocol.DriverCallRequest) (resp *protocol.DriverCallResponse, err error) {
	defer func() { e.session.metrics.call(ctx, "unary", req.Method, err) }()

	d, err := e.session.Lookup(req.UUID)
	if err != nil {
		return nil, toStatus(err)
	}

	args, err := value.FromWireList(req.Args)
	if err != nil {
		return nil, toStatus(err)
	}

	release, err := e.session.acquire()
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := d.Call(ctx, req.Method, args)

	release()

	if err != nil {
		callErr := &CallError{UUID: d.UUID(), Method: req.Method, Err: err}

		e.logger.Debug().Err(err).Str("uuid", req.UUID).Str("method", req.Method).Msg("Driver call failed")

		return nil, toStatus(callErr)
	}

	return &protocol.DriverCallResponse{
		UUID:   req.UUID,
		Result: value.ToWire(result),
	}, nil
}

// StreamingDriverCall relays the results of a streaming method through a
// bounded queue. Results already sent stay delivered when the driver fails.
func (e *ExporterService) StreamingDriverCall(
	req *protocol.StreamingDriverCallRequest,
	stream grpc.ServerStreamingServer[protocol.StreamingDriverCallResponse],
) (err error) {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	defer func() { e.session.metrics.call(ctx, "streaming", req.Method, err) }()

	d, err := e.session.Lookup(req.UUID)
	if err != nil {
		return toStatus(err)
	}

	args, err := value.FromWireList(req.Args)
	if err != nil {
		return toStatus(err)
	}

	// Items are relayed unlocked, only the session state is checked here.
	release, err := e.session.acquire()
	if err != nil {
		return toStatus(err)
	}

	release()

	for it := range relay(ctx, d.StreamingCall(ctx, req.Method, args)) {
		if it.err != nil {
			return toStatus(&CallError{UUID: d.UUID(), Method: req.Method, Err: it.err})
		}

		if err := stream.Send(&protocol.StreamingDriverCallResponse{
			UUID:   req.UUID,
			Result: value.ToWire(it.value),
		}); err != nil {
			return err
		}
	}

	return nil
}

// LogStream is not supported.
func (*ExporterService) LogStream(*emptypb.Empty, grpc.ServerStreamingServer[protocol.LogStreamResponse]) error {
	return status.Error(codes.Unimplemented, "log streaming is not supported")
}

// Reset acknowledges without touching the driver tree.
func (e *ExporterService) Reset(context.Context, *protocol.ResetRequest) (*protocol.ResetResponse, error) {
	e.logger.Debug().Msg("Reset requested, acknowledging without action")

	return &protocol.ResetResponse{}, nil
}
