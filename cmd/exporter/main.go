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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jumpstarter-dev/jumpstarter/pkg/capture"
	"github.com/jumpstarter-dev/jumpstarter/pkg/config"
	"github.com/jumpstarter-dev/jumpstarter/pkg/drivers"
	"github.com/jumpstarter-dev/jumpstarter/pkg/exporter"
	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/lifecycle"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/jumpstarter/exporter.yaml", "Path to exporter config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())

		return nil
	}

	ctx, stop := lifecycle.SignalContext(context.Background())
	defer stop()

	// Step 1: Load config
	var cfg exporter.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Step 2: Create logger and telemetry from loaded config
	exporterLogger, err := lifecycle.CreateComponentLogger(ctx, "exporter", cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shutdown logger: %v", err)
		}
	}()

	telemetry, ctx, err := lifecycle.StartTelemetry(ctx, "jumpstarter-exporter", cfg.Logging, exporterLogger)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			exporterLogger.Warn().Err(err).Msg("Failed to shutdown telemetry")
		}
	}()

	// Step 3: Build the driver tree and the session around it
	tree, err := drivers.Build(ctx, cfg.Export, exporterLogger)
	if err != nil {
		return fmt.Errorf("failed to build drivers: %w", err)
	}

	opts := append(cfg.SessionOptions(), exporter.WithLogger(exporterLogger))

	if cfg.Capture.Path != "" {
		recorder, err := capture.NewFileRecorder(cfg.Capture.Path)
		if err != nil {
			_ = tree.Close()

			return fmt.Errorf("failed to open capture file: %w", err)
		}

		opts = append(opts, exporter.WithRecorder(recorder))
	}

	session, err := exporter.NewSession(tree, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if err := session.Close(); err != nil {
			exporterLogger.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	if err := session.Reset(); err != nil {
		return fmt.Errorf("failed to reset drivers: %w", err)
	}

	// Step 4: Serve until a signal arrives
	return serve(ctx, session, &cfg, exporterLogger)
}

func serve(ctx context.Context, session *exporter.Session, cfg *exporter.Config, log logger.Logger) error {
	provider, err := grpc.NewSecurityProvider(ctx, &cfg.Security, log)
	if err != nil {
		return err
	}

	defer func() { _ = provider.Close() }()

	var servers []*exporter.Server

	if cfg.Listen.Unix != "" {
		srv, err := session.ServeUnix(ctx, cfg.Listen.Unix, exporter.WithSecurity(provider))
		if err != nil {
			return err
		}

		servers = append(servers, srv)
	}

	if cfg.Listen.Address != "" {
		srv, err := session.ServeTCP(ctx, cfg.Listen.Address, exporter.WithSecurity(provider))
		if err != nil {
			return err
		}

		servers = append(servers, srv)
	}

	log.Info().
		Str("uuid", session.UUID().String()).
		Str("version", version.GetFullVersion()).
		Int("listeners", len(servers)).
		Msg("Exporter ready")

	var errs []error
	for _, srv := range servers {
		errs = append(errs, srv.Wait())
	}

	return errors.Join(errs...)
}
