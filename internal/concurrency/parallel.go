package concurrency

import (
	"context"
	"sync"
)

// Options bounds how much work runs at once.
type Options struct {
	// MaxWorkers caps concurrent calls to the item function; <= 0 means DefaultWorkers.
	MaxWorkers int
}

const DefaultWorkers = 4

func DefaultOptions() Options {
	return Options{MaxWorkers: DefaultWorkers}
}

// Result is the outcome of one item, stored at the item's index.
type Result[R any] struct {
	Value R
	Err   error
}

// ProcessParallel runs fn for every item on a bounded pool of workers and returns
// one Result per item, in input order.
//
// Once ctx is done no new item is started; items that never ran carry ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts Options,
	fn func(ctx context.Context, index int, item T) (R, error),
) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Each index is written by exactly one worker.
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				v, err := fn(ctx, i, items[i])
				results[i] = Result[R]{Value: v, Err: err}
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// Errors returns the non-nil errors of results, in input order.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
