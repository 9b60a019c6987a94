package concurrent

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Batches splits [0, n) into contiguous ranges of at most batchSize.
// A batchSize <= 0 yields a single range.
func Batches(n, batchSize int) [][2]int {
	if n <= 0 {
		return nil
	}
	if batchSize <= 0 || batchSize > n {
		batchSize = n
	}

	out := make([][2]int, 0, (n+batchSize-1)/batchSize)
	for lo := 0; lo < n; lo += batchSize {
		hi := lo + batchSize
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// ParallelFor runs action over [0, n) in batches of batchSize, with at most
// workers batches in flight. workers <= 0 means GOMAXPROCS. It returns once
// every batch has finished. Batches must not share writable state.
func ParallelFor(n, batchSize, workers int, action func(lo, hi int)) {
	batches := Batches(n, batchSize)
	if len(batches) == 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers == 1 || len(batches) == 1 {
		for _, b := range batches {
			action(b[0], b[1])
		}
		return
	}

	errGroup := errgroup.Group{}
	errGroup.SetLimit(workers)
	for _, b := range batches {
		errGroup.Go(func() error {
			action(b[0], b[1])
			return nil
		})
	}
	_ = errGroup.Wait()
}
