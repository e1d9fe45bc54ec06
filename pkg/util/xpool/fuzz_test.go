package xpool

import (
	"math"
	"testing"
)

func FuzzNew(f *testing.F) {
	f.Add(1)
	f.Add(0)
	f.Add(-1)
	f.Add(64)
	f.Add(maxWorkers + 1)
	f.Add(math.MaxInt)
	f.Add(math.MinInt)

	f.Fuzz(func(t *testing.T, workers int) {
		// 控制单次 fuzz 的 goroutine 数量。
		if workers > 256 && workers <= maxWorkers {
			workers = 256
		}
		pool, err := New(workers)
		if err != nil {
			// 参数无效时返回错误而非 panic
			return
		}
		defer pool.Close()

		fut, err := Submit(pool, func() (int, error) { return workers, nil })
		if err != nil {
			t.Fatalf("submit on open pool: %v", err)
		}
		if v, _ := fut.Get(); v != workers {
			t.Fatalf("got %d, want %d", v, workers)
		}
	})
}
