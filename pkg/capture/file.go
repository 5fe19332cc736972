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

package capture

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileRecorder appends records to a file. Encoding errors are dropped so a
// broken capture never disturbs the stream being recorded.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewFileRecorder opens path for appending, creating it if needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileRecorder{
		file:    f,
		encoder: encMode.NewEncoder(f),
	}, nil
}

func (r *FileRecorder) Record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	_ = r.encoder.Encode(rec)
}

// Close closes the file. Later records are ignored.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.file.Close()
}

// ReadFile decodes every record stored at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func() { _ = f.Close() }()

	return ReadAll(f)
}

var _ Recorder = (*FileRecorder)(nil)
