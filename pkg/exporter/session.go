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

// Package exporter exposes a tree of drivers over the ExporterService and
// RouterService gRPC services.
package exporter

import (
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

// Session binds an identity and labels to a driver tree and serves it.
//
// Unary calls, report enumeration and channel opens hold the read side of
// the session lock while they run. Reset and Close take the write side, so
// they wait for those to finish. Items of a streaming call and frames of an
// open stream are relayed without the lock and may observe a reset.
type Session struct {
	uuid     uuid.UUID
	labels   map[string]string
	tree     driver.Tree
	registry *Registry
	logger   logger.Logger
	recorder capture.Recorder
	metrics  *metrics

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionUUID sets the session identity. A random one is generated otherwise.
func WithSessionUUID(id uuid.UUID) SessionOption {
	return func(s *Session) {
		s.uuid = id
	}
}

func WithSessionLabels(labels map[string]string) SessionOption {
	return func(s *Session) {
		s.labels = maps.Clone(labels)
	}
}

func WithLogger(log logger.Logger) SessionOption {
	return func(s *Session) {
		s.logger = log
	}
}

// WithRecorder captures every frame relayed by the router.
func WithRecorder(rec capture.Recorder) SessionOption {
	return func(s *Session) {
		s.recorder = rec
	}
}

// NewSession builds the registry of tree. The session owns tree from here
// on: Close tears it down, also when NewSession fails.
func NewSession(tree driver.Tree, opts ...SessionOption) (*Session, error) {
	s := &Session{
		uuid:     uuid.New(),
		labels:   map[string]string{},
		tree:     tree,
		logger:   logger.NewTestLogger(),
		recorder: capture.NoopRecorder{},
		metrics:  newMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithComponent("exporter")

	registry, err := BuildRegistry(tree)
	if err != nil {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("Failed to close driver tree")
		}

		return nil, err
	}

	s.registry = registry

	s.logger.Info().
		Str("uuid", s.uuid.String()).
		Int("devices", registry.Len()).
		Msg("Session created")

	return s, nil
}

func (s *Session) UUID() uuid.UUID {
	return s.uuid
}

// Labels returns a copy of the session labels.
func (s *Session) Labels() map[string]string {
	return maps.Clone(s.labels)
}

// Lookup resolves a UUID string to a driver. Malformed and unknown
// identities both fail with ErrDeviceNotFound.
func (s *Session) Lookup(id string) (driver.Driver, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}

	d, ok := s.registry.Lookup(parsed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, parsed)
	}

	return d, nil
}

// acquire takes the read side of the session lock. The caller must call the
// returned release exactly once.
func (s *Session) acquire() (release func(), err error) {
	s.mu.RLock()

	if s.closed {
		s.mu.RUnlock()

		return nil, ErrSessionClosed
	}

	return s.mu.RUnlock, nil
}

// Enumerate walks the live tree under the read lock.
func (s *Session) Enumerate() ([]driver.Node, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return s.tree.Enumerate(), nil
}

// Reset resets the driver tree once in-flight calls complete.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if err := s.tree.Reset(); err != nil {
		return fmt.Errorf("reset driver tree: %w", err)
	}

	s.logger.Debug().Msg("Driver tree reset")

	return nil
}

// Close tears the driver tree down once in-flight calls complete. Only the
// first call runs the teardown; later calls return its result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.closeErr = s.tree.Close()

		if err := s.recorder.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close capture")
		}

		s.logger.Info().Err(s.closeErr).Msg("Session closed")
	})

	return s.closeErr
}
