package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/sentinel"
)

// ConcurrentResult tallies outcomes of RunConcurrent by kind.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32

	mu   sync.Mutex
	errs []error
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// Unexpected returns the errors counted under Errors.
func (r *ConcurrentResult) Unexpected() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// RunConcurrent starts n goroutines running fn and waits for all of them.
// Store sentinels and domain error codes both count as conflicts or misses.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                            sync.WaitGroup
		successes, conflicts, missing atomic.Int32
		res                           ConcurrentResult
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(i)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				missing.Add(1)
			default:
				res.mu.Lock()
				res.errs = append(res.errs, err)
				res.mu.Unlock()
			}
		}()
	}
	wg.Wait()

	res.Successes = successes.Load()
	res.Conflicts = conflicts.Load()
	res.NotFounds = missing.Load()
	res.Errors = int32(len(res.errs)) // #nosec G115 -- bounded by n
	return &res
}
