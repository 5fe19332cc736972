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

// Package power provides power switch drivers.
package power

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

const (
	clientClass = "jumpstarter_driver_power.client.PowerClient"

	defaultQuietPeriod = 2 * time.Second
)

// Reading is one sample reported by the read method.
type Reading struct {
	Voltage float64
	Current float64
}

// Value returns the reading as {"voltage": ..., "current": ...}.
func (r Reading) Value() value.Value {
	return value.Struct{
		"voltage": value.Number(r.Voltage),
		"current": value.Number(r.Current),
	}
}

// Switch is the device side of a power driver.
type Switch interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
}

// Export registers on, off and cycle for sw on b. cycle takes an optional
// quiet period in seconds.
func Export(b *driver.Base, sw Switch) {
	b.ExportCall("on", func(ctx context.Context, _ []value.Value) (value.Value, error) {
		return value.Null{}, sw.On(ctx)
	})

	b.ExportCall("off", func(ctx context.Context, _ []value.Value) (value.Value, error) {
		return value.Null{}, sw.Off(ctx)
	})

	b.ExportCall("cycle", func(ctx context.Context, args []value.Value) (value.Value, error) {
		wait := defaultQuietPeriod

		if len(args) > 0 {
			seconds, err := driver.NumberArg(args, 0)
			if err != nil {
				return nil, err
			}

			wait = time.Duration(seconds * float64(time.Second))
		}

		if err := sw.Off(ctx); err != nil {
			return nil, err
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return value.Null{}, sw.On(ctx)
	})
}

// Mock is an in-memory power switch. Its read method yields two fixed readings.
type Mock struct {
	*driver.Base

	logger logger.Logger

	mu sync.Mutex
	on bool
}

func NewMock(log logger.Logger, opts ...driver.BaseOption) *Mock {
	opts = append([]driver.BaseOption{driver.WithClient(clientClass)}, opts...)

	m := &Mock{
		Base:   driver.NewBase(opts...),
		logger: log.WithComponent("power"),
	}

	Export(m.Base, m)
	m.ExportStreamingCall("read", m.read)

	return m
}

func (m *Mock) On(context.Context) error {
	m.set(true)

	return nil
}

func (m *Mock) Off(context.Context) error {
	m.set(false)

	return nil
}

// IsOn reports the current state.
func (m *Mock) IsOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.on
}

// Reset turns the switch off when a session starts.
func (m *Mock) Reset() error {
	m.set(false)

	return nil
}

func (m *Mock) set(on bool) {
	m.mu.Lock()
	m.on = on
	m.mu.Unlock()

	m.logger.Info().Str("uuid", m.UUID().String()).Bool("on", on).Msg("Power state changed")
}

func (*Mock) read(ctx context.Context, _ []value.Value) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		for _, r := range []Reading{{Voltage: 0, Current: 0}, {Voltage: 5, Current: 2}} {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())

				return
			}

			if !yield(r.Value(), nil) {
				return
			}
		}
	}
}
