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

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpstarter-dev/jumpstarter/pkg/driver"
	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
	"github.com/jumpstarter-dev/jumpstarter/pkg/value"
)

// openResource opens a resource stream on s the way the router does and
// returns the client end with its announced handle.
func openResource(t *testing.T, s *Storage) (driver.Channel, value.Value) {
	t.Helper()

	ch, err := s.OpenStream(context.Background(), driver.ResourceRoute(s.UUID()))
	require.NoError(t, err)

	carrier, ok := ch.(driver.MetadataCarrier)
	require.True(t, ok)

	return ch, value.String(carrier.Metadata()[driver.MetadataResource])
}

func newStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(Config{Root: t.TempDir()}, logger.NewTestLogger())
	require.NoError(t, err)

	return s
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	ch, handle := openResource(t, s)

	go func() {
		_ = ch.Send(ctx, []byte("kernel image"))
		_ = ch.(driver.HalfCloser).CloseWrite()
	}()

	n, err := s.Call(ctx, "write", []value.Value{handle, value.String("images/zImage")})
	require.NoError(t, err)
	assert.Equal(t, value.Number(12), n)

	data, err := os.ReadFile(filepath.Join(s.root, "images", "zImage"))
	require.NoError(t, err)
	assert.Equal(t, "kernel image", string(data))

	size, err := s.Call(ctx, "size", []value.Value{value.String("images/zImage")})
	require.NoError(t, err)
	assert.Equal(t, value.Number(12), size)

	ch, handle = openResource(t, s)

	got := make(chan []byte, 1)

	go func() {
		var buf []byte

		for {
			p, err := ch.Receive(ctx)
			if err != nil {
				got <- buf

				return
			}

			buf = append(buf, p...)
		}
	}()

	_, err = s.Call(ctx, "read", []value.Value{handle, value.String("images/zImage")})
	require.NoError(t, err)
	assert.Equal(t, "kernel image", string(<-got))

	_, err = s.Call(ctx, "write", []value.Value{handle, value.String("again")})
	require.ErrorIs(t, err, driver.ErrResourceNotFound)
}

func TestRejectsEscapingPaths(t *testing.T) {
	s := newStorage(t)

	for _, p := range []string{"../etc/passwd", "a/../../b", "", "."} {
		_, err := s.Call(context.Background(), "size", []value.Value{value.String(p)})
		assert.ErrorIs(t, err, driver.ErrInvalidArgument, p)
	}

	_, err := s.Call(context.Background(), "size", []value.Value{value.String("missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestList(t *testing.T) {
	s := newStorage(t)

	for _, name := range []string{"a.img", "boot/b.img", "boot/dtb/c.dtb"} {
		path := filepath.Join(s.root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	}

	var got []value.Value

	for v, err := range s.StreamingCall(context.Background(), "list", nil) {
		require.NoError(t, err)

		got = append(got, v)
	}

	assert.Equal(t, []value.Value{
		value.String("a.img"), value.String("boot/b.img"), value.String("boot/dtb/c.dtb"),
	}, got)

	for range s.StreamingCall(context.Background(), "list", nil) {
		break
	}
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New(Config{}, logger.NewTestLogger())
	require.ErrorIs(t, err, errMissingRoot)
}
