package concurrent

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	tests := []struct {
		name      string
		n, size   int
		wantCount int
		wantLast  [2]int
	}{
		{name: "even", n: 10, size: 5, wantCount: 2, wantLast: [2]int{5, 10}},
		{name: "remainder", n: 10, size: 4, wantCount: 3, wantLast: [2]int{8, 10}},
		{name: "single", n: 3, size: 0, wantCount: 1, wantLast: [2]int{0, 3}},
		{name: "oversized", n: 3, size: 100, wantCount: 1, wantLast: [2]int{0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Batches(tt.n, tt.size)
			require.Len(t, got, tt.wantCount)
			require.Equal(t, tt.wantLast, got[len(got)-1])
		})
	}

	require.Empty(t, Batches(0, 4))
}

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 16} {
		const n = 1000
		hits := make([]int32, n)

		ParallelFor(n, 37, workers, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			require.Equalf(t, int32(1), h, "index %d with %d workers", i, workers)
		}
	}
}

func TestParallelForRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	ParallelFor(64, 1, 4, func(lo, hi int) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	})
	require.LessOrEqual(t, peak.Load(), int32(4))
}

func TestHandle(t *testing.T) {
	release := make(chan struct{})
	h := Go(func() { <-release })

	require.False(t, h.IsCompleted())
	close(release)
	h.Wait()
	require.True(t, h.IsCompleted())

	select {
	case <-h.Done():
	default:
		t.Fatal("done channel not closed")
	}

	require.True(t, Completed().IsCompleted())
}
