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

// Package network provides drivers that expose a byte stream to a network
// endpoint: TCP, unix sockets, WebSockets and an in-memory echo.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

const (
	clientClass = "jumpstarter_driver_network.client.NetworkClient"

	// MethodConnect is the stream method every network driver exports.
	MethodConnect = "connect"
	// MethodAddress is the call returning the endpoint address.
	MethodAddress = "address"
)

var (
	errMissingHost = errors.New("host is required")
	errMissingPath = errors.New("path is required")
	errMissingURL  = errors.New("url is required")
	errInvalidPort = errors.New("port must be between 1 and 65535")
)

// Dialer opens the connection behind a network driver.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// Network is a driver whose connect stream dials a fresh connection each time.
type Network struct {
	*driver.Base

	address string
	dial    Dialer
}

// New returns a network driver reporting address and connecting with dial.
func New(address string, dial Dialer, opts ...driver.BaseOption) *Network {
	opts = append([]driver.BaseOption{driver.WithClient(clientClass)}, opts...)

	n := &Network{
		Base:    driver.NewBase(opts...),
		address: address,
		dial:    dial,
	}

	n.ExportCall(MethodAddress, n.addressCall)
	n.ExportStream(MethodConnect, n.connect)

	return n
}

// Address returns the endpoint address, e.g. "tcp://10.0.0.2:23".
func (n *Network) Address() string {
	return n.address
}

func (n *Network) addressCall(context.Context, []value.Value) (value.Value, error) {
	return value.String(n.address), nil
}

func (n *Network) connect(ctx context.Context) (driver.Channel, error) {
	conn, err := n.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", n.address, err)
	}

	return driver.NewConnChannel(conn), nil
}

// TCPConfig is the config section of a "tcp" instance.
type TCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c TCPConfig) validate() error {
	if c.Host == "" {
		return errMissingHost
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, c.Port)
	}

	return nil
}

// NewTCP returns a driver connecting to a TCP endpoint.
func NewTCP(cfg TCPConfig, opts ...driver.BaseOption) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	hostport := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	return New("tcp://"+hostport, netDialer("tcp", hostport), opts...), nil
}

// UnixConfig is the config section of a "unix" instance.
type UnixConfig struct {
	Path string `yaml:"path"`
}

// NewUnix returns a driver connecting to a unix socket.
func NewUnix(cfg UnixConfig, opts ...driver.BaseOption) (*Network, error) {
	if cfg.Path == "" {
		return nil, errMissingPath
	}

	return New("unix://"+cfg.Path, netDialer("unix", cfg.Path), opts...), nil
}

func netDialer(network, address string) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		var d net.Dialer

		return d.DialContext(ctx, network, address)
	}
}

// NewEcho returns a driver whose connect stream sends back what it receives.
func NewEcho(opts ...driver.BaseOption) *Network {
	return New("echo://", func(context.Context) (io.ReadWriteCloser, error) {
		local, remote := driver.Pipe()

		go func() {
			_, _ = io.Copy(local, local)
			_ = local.CloseWrite()
		}()

		return remote, nil
	}, opts...)
}
