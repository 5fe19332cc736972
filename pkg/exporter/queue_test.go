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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayBackpressure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var produced atomic.Int64

	done := make(chan struct{})

	var seq iter.Seq2[int, error] = func(yield func(int, error) bool) {
		defer close(done)

		for i := 0; ; i++ {
			produced.Add(1)

			if !yield(i, nil) {
				return
			}
		}
	}

	out := relay(ctx, seq)

	// queueCapacity items fit in the queue and one more waits to be queued.
	require.Eventually(t, func() bool {
		return produced.Load() == queueCapacity+1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(queueCapacity+1), produced.Load())

	first := <-out
	assert.Equal(t, 0, first.value)

	require.Eventually(t, func() bool {
		return produced.Load() == queueCapacity+2
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	n := 0
	for range out {
		n++
	}

	assert.LessOrEqual(t, n, queueCapacity)
}

func TestRelayStopsAfterError(t *testing.T) {
	var seq iter.Seq2[string, error] = func(yield func(string, error) bool) {
		if !yield("a", nil) {
			return
		}

		if !yield("", errBoom) {
			return
		}

		yield("unreachable", nil)
	}

	var got []item[string]
	for it := range relay(context.Background(), seq) {
		got = append(got, it)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].value)
	assert.ErrorIs(t, got[1].err, errBoom)
}
