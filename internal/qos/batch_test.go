// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivideIntoBatches(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		maxBatch  int
		wantSizes []int
	}{
		{"empty", 0, 16, nil},
		{"single partial batch", 5, 16, []int{5}},
		{"exact batch", 16, 16, []int{16}},
		{"one full one partial", 20, 16, []int{16, 4}},
		{"many batches", 50, 16, []int{16, 16, 16, 2}},
		{"batch of one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := make([]int, tt.size)
			for i := range request {
				request[i] = i
			}

			batches := divideIntoBatches(request, tt.maxBatch)
			require.Len(t, batches, len(tt.wantSizes))

			// Concatenating the batches reproduces the request in
			// original order, and no batch exceeds the maximum.
			rejoined := make([]int, 0, len(request))
			for i, batch := range batches {
				assert.Equal(t, tt.wantSizes[i], len(batch))
				assert.NotEmpty(t, batch)
				assert.LessOrEqual(t, len(batch), tt.maxBatch)
				rejoined = append(rejoined, batch...)
			}
			assert.Equal(t, request, rejoined)
		})
	}
}

func TestDivideIntoBatchesNonPositiveMax(t *testing.T) {
	batches := divideIntoBatches([]int{1, 2}, 0)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{1}, batches[0])
	assert.Equal(t, []int{2}, batches[1])
}
