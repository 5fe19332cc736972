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

// Package storage provides a driver that stores files streamed by clients
// below a root directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

const clientClass = "jumpstarter_driver_opendal.client.FlasherClient"

var (
	errMissingRoot = errors.New("root is required")
	errOutsideRoot = errors.New("path escapes the storage root")
)

// Config is the config section of a "storage" instance.
type Config struct {
	Root string `yaml:"root"`
}

// Storage exports:
//
//	write(resource, path) copies a client resource into path, returns the byte count
//	read(resource, path)  copies path into a client resource
//	size(path)            returns the file size
//	list()                yields every file path, relative to the root
type Storage struct {
	*driver.Base

	root   string
	logger logger.Logger
}

func New(cfg Config, log logger.Logger, opts ...driver.BaseOption) (*Storage, error) {
	if cfg.Root == "" {
		return nil, errMissingRoot
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	opts = append([]driver.BaseOption{driver.WithClient(clientClass)}, opts...)

	s := &Storage{
		Base:   driver.NewBase(opts...),
		root:   root,
		logger: log.WithComponent("storage"),
	}

	s.ExportCall("write", s.write)
	s.ExportCall("read", s.read)
	s.ExportCall("size", s.size)
	s.ExportStreamingCall("list", s.list)

	return s, nil
}

// resolve maps a client path to a path below the root.
func (s *Storage) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty path", driver.ErrInvalidArgument)
	}

	full := filepath.Join(s.root, filepath.FromSlash(name))

	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %w: %s", driver.ErrInvalidArgument, errOutsideRoot, name)
	}

	return full, nil
}

func (s *Storage) resourceAndPath(args []value.Value) (io.ReadWriteCloser, string, error) {
	handle, err := driver.Arg(args, 0)
	if err != nil {
		return nil, "", err
	}

	name, err := driver.StringArg(args, 1)
	if err != nil {
		return nil, "", err
	}

	path, err := s.resolve(name)
	if err != nil {
		return nil, "", err
	}

	res, err := s.TakeResource(handle)
	if err != nil {
		return nil, "", err
	}

	return res, path, nil
}

func (s *Storage) write(ctx context.Context, args []value.Value) (value.Value, error) {
	res, path, err := s.resourceAndPath(args)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = res.Close() })
	defer stop()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, res)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Int64("bytes", n).Msg("File written")

	return value.Number(n), nil
}

func (s *Storage) read(ctx context.Context, args []value.Value) (value.Value, error) {
	res, path, err := s.resourceAndPath(args)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = res.Close() })
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(res, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if hc, ok := res.(driver.HalfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			return nil, err
		}
	}

	return value.Number(n), nil
}

func (s *Storage) size(_ context.Context, args []value.Value) (value.Value, error) {
	name, err := driver.StringArg(args, 0)
	if err != nil {
		return nil, err
	}

	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return value.Number(info.Size()), nil
}

func (s *Storage) list(ctx context.Context, _ []value.Value) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		errStop := errors.New("stop")

		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}

			if !yield(value.String(filepath.ToSlash(rel)), nil) {
				return errStop
			}

			return nil
		})

		if err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}
