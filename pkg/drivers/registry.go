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

// Package drivers builds driver trees from exporter configuration.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/composite"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/network"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/power"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/snmp"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers/storage"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

var errNoChildren = errors.New("driver type does not accept children")

// Creator builds one driver instance from its configuration. Children are
// attached by the registry.
type Creator func(ctx context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, log logger.Logger) (driver.Driver, error)

// Registry maps driver type names to creators.
type Registry interface {
	Register(typeName string, creator Creator)
	Types() []string
	Build(ctx context.Context, cfg driver.InstanceConfig, log logger.Logger) (driver.Driver, error)
}

type childAdder interface {
	AddChild(name string, d driver.Driver)
}

type driverRegistry struct {
	creators map[string]Creator
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &driverRegistry{creators: make(map[string]Creator)}
}

func (r *driverRegistry) Register(typeName string, creator Creator) {
	r.creators[typeName] = creator
}

func (r *driverRegistry) Types() []string {
	types := make([]string, 0, len(r.creators))
	for t := range r.creators {
		types = append(types, t)
	}

	sort.Strings(types)

	return types
}

// Build creates the instance and its children, depth first. On failure
// every driver built so far is closed.
func (r *driverRegistry) Build(ctx context.Context, cfg driver.InstanceConfig, log logger.Logger) (driver.Driver, error) {
	create, ok := r.creators[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", driver.ErrUnknownDriverType, cfg.Type)
	}

	opts, err := cfg.BaseOptions()
	if err != nil {
		return nil, err
	}

	d, err := create(ctx, cfg, opts, log)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Type, err)
	}

	if len(cfg.Children) == 0 {
		return d, nil
	}

	parent, ok := d.(childAdder)
	if !ok {
		return nil, closeAfter(d, fmt.Errorf("%w: %s", errNoChildren, cfg.Type))
	}

	for _, name := range cfg.ChildNames() {
		child, err := r.Build(ctx, cfg.Children[name], log)
		if err != nil {
			return nil, closeAfter(d, fmt.Errorf("%s: %w", name, err))
		}

		parent.AddChild(name, child)
	}

	return d, nil
}

func closeAfter(d driver.Driver, err error) error {
	return errors.Join(err, driver.NewTree(d).Close())
}

// DefaultRegistry returns a registry holding every built-in driver type.
func DefaultRegistry() Registry {
	r := NewRegistry()

	r.Register("composite", func(_ context.Context, _ driver.InstanceConfig, opts []driver.BaseOption, _ logger.Logger) (driver.Driver, error) {
		return composite.New(opts...), nil
	})

	r.Register("tcp", func(_ context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, _ logger.Logger) (driver.Driver, error) {
		var c network.TCPConfig
		if err := cfg.Decode(&c); err != nil {
			return nil, err
		}

		return network.NewTCP(c, opts...)
	})

	r.Register("unix", func(_ context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, _ logger.Logger) (driver.Driver, error) {
		var c network.UnixConfig
		if err := cfg.Decode(&c); err != nil {
			return nil, err
		}

		return network.NewUnix(c, opts...)
	})

	r.Register("websocket", func(_ context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, _ logger.Logger) (driver.Driver, error) {
		var c network.WebSocketConfig
		if err := cfg.Decode(&c); err != nil {
			return nil, err
		}

		return network.NewWebSocket(c, opts...)
	})

	r.Register("echo", func(_ context.Context, _ driver.InstanceConfig, opts []driver.BaseOption, _ logger.Logger) (driver.Driver, error) {
		return network.NewEcho(opts...), nil
	})

	r.Register("mock-power", func(_ context.Context, _ driver.InstanceConfig, opts []driver.BaseOption, log logger.Logger) (driver.Driver, error) {
		return power.NewMock(log, opts...), nil
	})

	r.Register("snmp-power", func(_ context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, log logger.Logger) (driver.Driver, error) {
		var c snmp.Config
		if err := cfg.Decode(&c); err != nil {
			return nil, err
		}

		return snmp.New(c, log, opts...)
	})

	r.Register("storage", func(_ context.Context, cfg driver.InstanceConfig, opts []driver.BaseOption, log logger.Logger) (driver.Driver, error) {
		var c storage.Config
		if err := cfg.Decode(&c); err != nil {
			return nil, err
		}

		return storage.New(c, log, opts...)
	})

	return r
}

// Build turns the export section of an exporter config into a tree rooted
// at a composite driver whose children are the exported instances.
func Build(ctx context.Context, export map[string]driver.InstanceConfig, log logger.Logger) (driver.Tree, error) {
	root, err := DefaultRegistry().Build(ctx, driver.InstanceConfig{Type: "composite", Children: export}, log)
	if err != nil {
		return nil, err
	}

	return driver.NewTree(root), nil
}
