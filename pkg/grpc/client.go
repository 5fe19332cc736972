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
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

const (
	maxRetryAttempts = 5
	retryPolicy      = `{"methodConfig":[{"name":[{}],"retryPolicy":{` +
		`"MaxAttempts":%d,"InitialBackoff":"0.1s","MaxBackoff":"2s",` +
		`"BackoffMultiplier":2,"RetryableStatusCodes":["UNAVAILABLE"]}}]}`
)

// ClientConfig describes how to reach a jumpstarter service.
type ClientConfig struct {
	Address          string
	SecurityProvider SecurityProvider
	// MaxRetries bounds transparent retries of unary calls that fail with
	// Unavailable. Zero disables retries.
	MaxRetries  int
	DialOptions []grpc.DialOption
}

// Client owns a gRPC connection.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient creates a client connection. The connection is established
// lazily on the first call.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Address == "" {
		return nil, errAddressRequired
	}

	creds := grpc.WithTransportCredentials(insecure.NewCredentials())

	if cfg.SecurityProvider != nil {
		var err error

		creds, err = cfg.SecurityProvider.GetClientCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get client credentials: %w", err)
		}
	}

	opts := []grpc.DialOption{
		creds,
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                120 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	if cfg.MaxRetries > 0 {
		attempts := min(cfg.MaxRetries+1, maxRetryAttempts)
		opts = append(opts, grpc.WithDefaultServiceConfig(fmt.Sprintf(retryPolicy, attempts)))
	}

	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Address, err)
	}

	return &Client{conn: conn}, nil
}

// GetConnection returns the underlying connection.
func (c *Client) GetConnection() *grpc.ClientConn {
	return c.conn
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
