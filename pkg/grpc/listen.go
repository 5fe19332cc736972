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

package grpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
)

const unixScheme = "unix://"

// Listen opens a listener for addr. Addresses of the form unix://<path>
// (or unix:<path>) bind a unix socket, anything else is a TCP host:port.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	network, address := SplitAddress(addr)

	switch network {
	case "unix":
		return ListenUnix(ctx, address)
	case "tcp":
		return ListenTCP(ctx, address)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedNetwork, network)
	}
}

// SplitAddress returns the network and address parts of addr.
func SplitAddress(addr string) (network, address string) {
	switch {
	case strings.HasPrefix(addr, unixScheme):
		return "unix", strings.TrimPrefix(addr, unixScheme)
	case strings.HasPrefix(addr, "unix:"):
		return "unix", strings.TrimPrefix(addr, "unix:")
	default:
		return "tcp", addr
	}
}

// ListenUnix binds a unix socket at path, removing a stale socket file left
// by a previous process.
func ListenUnix(ctx context.Context, path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}

	lc := &net.ListenConfig{}

	return lc.Listen(ctx, "unix", path)
}

func ListenTCP(ctx context.Context, address string) (net.Listener, error) {
	lc := &net.ListenConfig{}

	return lc.Listen(ctx, "tcp", address)
}
