// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package qos

// divideIntoBatches splits a request into contiguous batches of at most
// maxBatch elements, preserving order. The last batch may be shorter;
// no batch is ever empty. The returned batches alias the input slice.
func divideIntoBatches[T any](request []T, maxBatch int) [][]T {
	var batches [][]T
	if maxBatch <= 0 {
		maxBatch = 1
	}
	for start := 0; start < len(request); start += maxBatch {
		end := start + maxBatch
		if end > len(request) {
			end = len(request)
		}
		batches = append(batches, request[start:end])
	}
	return batches
}
