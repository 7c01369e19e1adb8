package testutil

import (
	"sync"
	"sync/atomic"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors
}

// RunConcurrent runs fn in goroutines that all start together and counts outcomes.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	successes, errs := RunConcurrentCollect(goroutines, fn)
	return &ConcurrentResult{Successes: successes, Errors: int32(len(errs))}
}

// RunConcurrentCollect runs fn in goroutines released at the same instant and
// returns every error for closer inspection.
func RunConcurrentCollect(goroutines int, fn func(idx int) error) (successes int32, errs []error) {
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successCount atomic.Int32
		start        = make(chan struct{})
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			if err := fn(idx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			successCount.Add(1)
		}(i)
	}

	close(start)
	wg.Wait()
	return successCount.Load(), errs
}
