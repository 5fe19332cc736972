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

package exporter

import (
	"context"
	"iter"
)

// queueCapacity bounds the items buffered between a producer and a slow
// remote peer, for streaming calls and router streams alike.
const queueCapacity = 128

type item[T any] struct {
	value T
	err   error
}

// relay ranges over seq on a new goroutine and forwards each pair into a
// channel of queueCapacity. Production blocks while the channel is full. The
// channel is closed after the sequence ends, after the first error, or once
// ctx is done; in the last case the sequence is abandoned.
func relay[T any](ctx context.Context, seq iter.Seq2[T, error]) <-chan item[T] {
	out := make(chan item[T], queueCapacity)

	go func() {
		defer close(out)

		for v, err := range seq {
			select {
			case out <- item[T]{value: v, err: err}:
			case <-ctx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return out
}
