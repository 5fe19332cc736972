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

package driver

import (
	"errors"
	"io"
)

// PipeEnd is one end of an in-memory duplex pipe.
type PipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// Pipe returns two connected ends. Bytes written to one end are read from
// the other; each direction can be closed independently with CloseWrite.
func Pipe() (*PipeEnd, *PipeEnd) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	return &PipeEnd{r: ar, w: aw}, &PipeEnd{r: br, w: bw}
}

func (p *PipeEnd) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *PipeEnd) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// CloseWrite signals io.EOF to the reader of the other end.
func (p *PipeEnd) CloseWrite() error {
	return p.w.Close()
}

// Close closes both directions.
func (p *PipeEnd) Close() error {
	return errors.Join(p.w.Close(), p.r.Close())
}
