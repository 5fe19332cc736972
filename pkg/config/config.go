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

// Package config loads service configuration from a file or the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/jumpstarter-dev/jumpstarter/pkg/grpc"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errInvalidConfigPtr    = errors.New("config must be a non-nil pointer")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	defaultEnvPrefix = "JUMPSTARTER_"
)

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a new Config with a file loader. A nil logger
// discards output.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		defaultLoader: NewFileConfigLoader(log),
		logger:        log,
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration, resolves TLS paths of any
// grpc.SecurityConfig field against its cert_dir, and validates it.
//
// CONFIG_SOURCE selects the loader: "file" (default) reads path, "env" reads
// variables prefixed with CONFIG_ENV_PREFIX (default JUMPSTARTER_).
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	loader, err := c.loaderFor(strings.ToLower(os.Getenv("CONFIG_SOURCE")))
	if err != nil {
		return err
	}

	if err := loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	if err := c.normalizeSecurityConfig(cfg); err != nil {
		return fmt.Errorf("failed to normalize SecurityConfig: %w", err)
	}

	return ValidateConfig(cfg)
}

func (c *Config) loaderFor(source string) (ConfigLoader, error) {
	switch source {
	case configSourceEnv:
		prefix := os.Getenv("CONFIG_ENV_PREFIX")
		if prefix == "" {
			prefix = defaultEnvPrefix
		}

		return NewEnvConfigLoader(c.logger, prefix), nil
	case configSourceFile, "":
		return c.defaultLoader, nil
	default:
		return nil, fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}
}

func (c *Config) normalizeSecurityConfig(cfg interface{}) error {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errInvalidConfigPtr
	}

	v = v.Elem()

	if v.Kind() != reflect.Struct {
		return nil
	}

	secType := reflect.TypeOf(grpc.SecurityConfig{})

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		switch {
		case field.Type() == secType && field.CanAddr():
			c.normalizeTLSPaths(field.Addr().Interface().(*grpc.SecurityConfig))
		case field.Type() == reflect.PointerTo(secType) && !field.IsNil():
			c.normalizeTLSPaths(field.Interface().(*grpc.SecurityConfig))
		}
	}

	return nil
}

func (c *Config) normalizeTLSPaths(sec *grpc.SecurityConfig) {
	if sec.CertDir == "" {
		return
	}

	tls := &sec.TLS

	for _, p := range []*string{&tls.CertFile, &tls.KeyFile, &tls.CAFile, &tls.ClientCAFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(sec.CertDir, *p)
		}
	}

	c.logger.Debug().
		Str("cert_file", tls.CertFile).
		Str("key_file", tls.KeyFile).
		Str("ca_file", tls.CAFile).
		Str("client_ca_file", tls.ClientCAFile).
		Msg("Normalized TLS paths")
}
