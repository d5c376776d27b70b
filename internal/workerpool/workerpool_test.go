// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	t.Parallel()

	pool := New(4)
	defer pool.Close()

	cases := []struct {
		name    string
		workers int
		n       int
	}{
		{"sequential", 1, 37},
		{"two workers", 2, 37},
		{"full pool", 4, 37},
		{"more workers than pool", 16, 37},
		{"more workers than items", 4, 3},
		{"single item", 4, 1},
		{"zero degree", 0, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counts := make([]atomic.Int32, tc.n)
			pool.ParallelFor(tc.workers, tc.n, func(start, end int) {
				assert.LessOrEqual(t, start, end)
				for i := start; i < end; i++ {
					counts[i].Add(1)
				}
			})
			for i := range counts {
				assert.Equal(t, int32(1), counts[i].Load(), "index %d", i)
			}
		})
	}
}

func TestParallelForEmptyRange(t *testing.T) {
	t.Parallel()

	pool := New(2)
	defer pool.Close()

	called := false
	pool.ParallelFor(2, 0, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelForAfterClose(t *testing.T) {
	t.Parallel()

	pool := New(3)
	pool.Close()
	pool.Close()

	var chunks atomic.Int32
	pool.ParallelFor(3, 10, func(start, end int) {
		chunks.Add(1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), chunks.Load())
}

func TestNewDefaultsToGOMAXPROCS(t *testing.T) {
	t.Parallel()

	pool := New(0)
	defer pool.Close()
	assert.Positive(t, pool.NumWorkers())
}

func TestParallelForIsABarrier(t *testing.T) {
	t.Parallel()

	pool := New(4)
	defer pool.Close()

	data := make([]int, 64)
	pool.ParallelFor(4, len(data), func(start, end int) {
		for i := start; i < end; i++ {
			data[i] = i
		}
	})
	// The second phase reads neighbours written by other chunks of the first.
	out := make([]int, len(data))
	pool.ParallelFor(4, len(data)-1, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = data[i] + data[i+1]
		}
	})
	for i := 0; i < len(data)-1; i++ {
		assert.Equal(t, 2*i+1, out[i])
	}
}
