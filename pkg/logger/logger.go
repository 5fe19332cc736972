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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

// zlogger implements Logger on top of a zerolog.Logger without global state.
type zlogger struct {
	logger zerolog.Logger
}

// Wrap adapts an existing zerolog.Logger.
func Wrap(l zerolog.Logger) Logger {
	return &zlogger{logger: l}
}

// New builds a logger from config. When OTel log export is enabled, every
// line is also forwarded to the collector.
func New(ctx context.Context, config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := NewOTelWriter(ctx, config.OTel)
		if err != nil {
			return nil, err
		}

		output = NewMultiWriter(output, otelWriter)
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zlogger{logger: zlog}, nil
}

func (l *zlogger) Trace() *zerolog.Event { return l.logger.Trace() }

func (l *zlogger) Debug() *zerolog.Event { return l.logger.Debug() }

func (l *zlogger) Info() *zerolog.Event { return l.logger.Info() }

func (l *zlogger) Warn() *zerolog.Event { return l.logger.Warn() }

func (l *zlogger) Error() *zerolog.Event { return l.logger.Error() }

func (l *zlogger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func (l *zlogger) Panic() *zerolog.Event { return l.logger.Panic() }

func (l *zlogger) With() zerolog.Context { return l.logger.With() }

func (l *zlogger) WithComponent(component string) Logger {
	return &zlogger{logger: l.logger.With().Str("component", component).Logger()}
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return &zlogger{logger: ctx.Logger()}
}

func (l *zlogger) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *zlogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// GetLevel reports the level of l when it was built by this package.
func GetLevel(l Logger) zerolog.Level {
	if z, ok := l.(*zlogger); ok {
		return z.logger.GetLevel()
	}

	return zerolog.NoLevel
}

// Shutdown flushes the OTel log and metric pipelines.
func Shutdown() error {
	return ShutdownOTEL()
}
