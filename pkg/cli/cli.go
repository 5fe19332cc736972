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

// Package cli implements jmp, the command-line client for an exporter.
package cli

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/jumpstarter-dev/jumpstarter/pkg/exporter"
)

const defaultTimeout = 30 * time.Second

// DefaultTarget is the exporter address used when -target is not given.
var DefaultTarget = "unix://" + exporter.DefaultSocketPath

// SubcommandHandler defines the interface for parsing subcommand flags.
type SubcommandHandler interface {
	Parse(args []string, cfg *CmdConfig) error
}

func connectionFlags(fs *flag.FlagSet, cfg *CmdConfig) {
	fs.StringVar(&cfg.Target, "target", DefaultTarget, "exporter address, unix://<path> or host:port")
	fs.StringVar(&cfg.CertDir, "cert-dir", "", "directory holding ca.pem and client.pem; enables mTLS")
	fs.StringVar(&cfg.ServerName, "server-name", "", "expected exporter certificate name")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "deadline for unary calls")
}

// ReportHandler handles flags for the report subcommand.
type ReportHandler struct{}

func (ReportHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	connectionFlags(fs, cfg)
	fs.BoolVar(&cfg.JSON, "json", false, "print the raw report as JSON")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing report flags: %w", err)
	}

	return nil
}

// CallHandler handles flags for the call subcommand.
type CallHandler struct{}

// Parse reads `call [flags] <uuid> <method> [args...]`. Arguments are JSON
// values; anything that does not parse as JSON is passed as a string.
func (CallHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	connectionFlags(fs, cfg)
	fs.BoolVar(&cfg.Streaming, "stream", false, "invoke a streaming method and print each result")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing call flags: %w", err)
	}

	rest := fs.Args()

	switch len(rest) {
	case 0:
		return errMissingDevice
	case 1:
		return errMissingMethod
	}

	cfg.Device, cfg.Method, cfg.Args = rest[0], rest[1], rest[2:]

	return nil
}

// StreamHandler handles flags for the stream subcommand.
type StreamHandler struct{}

// Parse reads `stream [flags] <uuid> [method]`.
func (StreamHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	connectionFlags(fs, cfg)
	fs.BoolVar(&cfg.Resource, "resource", false, "open a resource and print its handle")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing stream flags: %w", err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errMissingDevice
	}

	cfg.Device = rest[0]

	switch {
	case cfg.Resource && len(rest) > 1:
		return errResourceOnMethod
	case !cfg.Resource && len(rest) < 2:
		return errMissingMethod
	case !cfg.Resource:
		cfg.Method = rest[1]
	}

	return nil
}

// CaptureHandler handles flags for the capture subcommand.
type CaptureHandler struct{}

func (CaptureHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	fs.BoolVar(&cfg.JSON, "json", false, "print one JSON record per line")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing capture flags: %w", err)
	}

	if fs.NArg() == 0 {
		return errMissingFile
	}

	cfg.File = fs.Arg(0)

	return nil
}

// GenerateCertsHandler handles flags for the generate-certs subcommand.
type GenerateCertsHandler struct{}

func (GenerateCertsHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("generate-certs", flag.ContinueOnError)
	fs.StringVar(&cfg.CertDir, "cert-dir", "", "where to write the certificates")
	hosts := fs.String("host", "", "exporter host names or IPs (comma-separated)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing generate-certs flags: %w", err)
	}

	if cfg.CertDir == "" {
		return errMissingCertDir
	}

	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			cfg.Hosts = append(cfg.Hosts, h)
		}
	}

	return nil
}

var subcommands = map[string]SubcommandHandler{
	"report":         ReportHandler{},
	"call":           CallHandler{},
	"stream":         StreamHandler{},
	"capture":        CaptureHandler{},
	"generate-certs": GenerateCertsHandler{},
}

// ParseFlags parses the subcommand and its flags from args, which excludes
// the program name.
func ParseFlags(args []string) (*CmdConfig, error) {
	cfg := &CmdConfig{}

	if len(args) == 0 {
		cfg.Help = true

		return cfg, nil
	}

	cfg.SubCmd = args[0]

	switch cfg.SubCmd {
	case "help", "-h", "-help", "--help":
		cfg.Help = true

		return cfg, nil
	case "version":
		return cfg, nil
	}

	handler, ok := subcommands[cfg.SubCmd]
	if !ok {
		return cfg, fmt.Errorf("%w: %s", errUnknownCommand, cfg.SubCmd)
	}

	if err := handler.Parse(args[1:], cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
