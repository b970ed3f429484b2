// Package partition splits a collection into contiguous slices ("nodes") that
// the search strategies scan independently.
package partition

import "runtime"

// DefaultCount is the host's parallel-execution width.
func DefaultCount() int {
	return runtime.GOMAXPROCS(0)
}

// Split divides items into exactly n contiguous partitions whose sizes differ by
// at most one; the first len(items)%n partitions carry the extra item. n <= 0
// selects DefaultCount. Partitions are views into items clipped to their own
// length, so appending to one never overwrites its neighbour.
func Split[T any](items []T, n int) [][]T {
	if n <= 0 {
		n = DefaultCount()
	}

	base := len(items) / n
	extra := len(items) % n

	parts := make([][]T, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		end := start + size
		parts[i] = items[start:end:end]
		start = end
	}
	return parts
}

// Flatten concatenates partitions back into one slice in partition order.
func Flatten[T any](parts [][]T) []T {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
