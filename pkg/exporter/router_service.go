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
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/protocol"
)

// RouterService connects remote byte streams to device channels.
type RouterService struct {
	protocol.UnimplementedRouterServiceServer

	session *Session
	logger  logger.Logger
}

func NewRouterService(session *Session) *RouterService {
	return &RouterService{
		session: session,
		logger:  session.logger.WithComponent("router"),
	}
}

// Stream resolves the route carried in the request metadata, opens the
// device channel and relays frames both ways until both directions finish.
// Once the channel is open the RPC always completes without error.
func (r *RouterService) Stream(stream grpc.BidiStreamingServer[protocol.StreamRequest, protocol.StreamResponse]) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	target, err := routeFromContext(ctx)
	if err != nil {
		return toStatus(err)
	}

	d, err := r.session.Lookup(target.UUID.String())
	if err != nil {
		return toStatus(err)
	}

	ch, err := r.open(ctx, d, target)
	if err != nil {
		r.logger.Warn().Err(err).Str("target", target.String()).Msg("Failed to open channel")

		return toStatus(err)
	}

	if carrier, ok := ch.(driver.MetadataCarrier); ok {
		if md := carrier.Metadata(); len(md) > 0 {
			if err := stream.SendHeader(metadata.New(md)); err != nil {
				r.logger.Debug().Err(err).Msg("Failed to send channel metadata")
			}
		}
	}

	p := &pump{
		id:       uuid.NewString(),
		target:   target.String(),
		ch:       ch,
		stream:   stream,
		recorder: r.session.recorder,
		metrics:  r.session.metrics,
		logger:   r.logger,
	}

	r.session.metrics.streamOpened(ctx)
	defer r.session.metrics.streamClosed(ctx)

	r.logger.Debug().Str("stream", p.id).Str("target", p.target).Msg("Stream opened")

	p.run(ctx, cancel)

	if err := ch.Close(); err != nil {
		r.logger.Debug().Err(err).Str("stream", p.id).Msg("Channel close failed")
	}

	r.logger.Debug().Str("stream", p.id).Msg("Stream closed")

	return nil
}

func routeFromContext(ctx context.Context) (driver.RouteTarget, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return driver.RouteTarget{}, fmt.Errorf("%w: no metadata", ErrInvalidRoute)
	}

	values := md.Get(protocol.MetadataRequest)
	if len(values) == 0 {
		return driver.RouteTarget{}, fmt.Errorf("%w: missing %q metadata", ErrInvalidRoute, protocol.MetadataRequest)
	}

	target, err := driver.ParseRouteTarget(values[0])
	if err != nil {
		return driver.RouteTarget{}, fmt.Errorf("%w: %w", ErrInvalidRoute, err)
	}

	return target, nil
}

func (r *RouterService) open(ctx context.Context, d driver.Driver, target driver.RouteTarget) (driver.Channel, error) {
	release, err := r.session.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ch, err := d.OpenStream(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChannelOpenFailed, target, err)
	}

	return ch, nil
}

// pump relays frames between one RPC stream and one device channel.
type pump struct {
	id       string
	target   string
	ch       driver.Channel
	stream   grpc.BidiStreamingServer[protocol.StreamRequest, protocol.StreamResponse]
	recorder capture.Recorder
	metrics  *metrics
	logger   logger.Logger
}

// run blocks until both directions have finished and every queued frame
// has been handed to the stream.
func (p *pump) run(ctx context.Context, cancel context.CancelFunc) {
	out := make(chan *protocol.StreamResponse, queueCapacity)

	var g errgroup.Group

	g.Go(func() error {
		p.upstream(ctx, out)

		return nil
	})

	g.Go(func() error {
		p.downstream(ctx)

		return nil
	})

	go func() {
		_ = g.Wait()

		close(out)
	}()

	var sendErr error

	for frame := range out {
		if sendErr != nil {
			continue
		}

		if sendErr = p.stream.Send(frame); sendErr != nil {
			p.logger.Debug().Err(sendErr).Str("stream", p.id).Msg("Peer send failed")

			cancel()
		}
	}
}

// upstream moves device output to the peer as DATA frames followed by one
// GOAWAY.
func (p *pump) upstream(ctx context.Context, out chan<- *protocol.StreamResponse) {
	for {
		payload, err := p.ch.Receive(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Debug().Err(err).Str("stream", p.id).Msg("Device receive ended")
			}

			break
		}

		if len(payload) == 0 {
			continue
		}

		if !p.emit(ctx, out, protocol.FrameTypeData, payload) {
			return
		}
	}

	p.emit(ctx, out, protocol.FrameTypeGoAway, nil)
}

func (p *pump) emit(ctx context.Context, out chan<- *protocol.StreamResponse, ft protocol.FrameType, payload []byte) bool {
	select {
	case out <- &protocol.StreamResponse{FrameType: ft, Payload: payload}:
		p.observe(ctx, capture.DirectionToClient, ft, payload)

		return true
	case <-ctx.Done():
		return false
	}
}

// downstream moves peer DATA frames to the device. An orderly end from the
// peer half-closes the channel; a failed peer closes it.
func (p *pump) downstream(ctx context.Context) {
	for {
		frame, err := p.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.closeWrite()

				return
			}

			p.logger.Debug().Err(err).Str("stream", p.id).Msg("Peer receive failed")

			if err := p.ch.Close(); err != nil {
				p.logger.Debug().Err(err).Str("stream", p.id).Msg("Channel close failed")
			}

			return
		}

		p.observe(ctx, capture.DirectionToDevice, frame.FrameType, frame.Payload)

		if frame.FrameType != protocol.FrameTypeData {
			p.closeWrite()

			return
		}

		if len(frame.Payload) == 0 {
			continue
		}

		if err := p.ch.Send(ctx, frame.Payload); err != nil {
			p.logger.Debug().Err(err).Str("stream", p.id).Msg("Device send failed")

			return
		}
	}
}

func (p *pump) closeWrite() {
	hc, ok := p.ch.(driver.HalfCloser)
	if !ok {
		return
	}

	if err := hc.CloseWrite(); err != nil {
		p.logger.Debug().Err(err).Str("stream", p.id).Msg("Channel half-close failed")
	}
}

func (p *pump) observe(ctx context.Context, dir capture.Direction, ft protocol.FrameType, payload []byte) {
	p.metrics.frame(ctx, dir, ft, len(payload))

	p.recorder.Record(capture.Record{
		Timestamp: time.Now(),
		StreamID:  p.id,
		Target:    p.target,
		Direction: dir,
		FrameType: ft,
		Payload:   payload,
	})
}
