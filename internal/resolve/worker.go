package resolve

import (
	"context"
	"sync"

	"chainHTTP/internal/output"
)

// Outcome is the result of resolving one input. Exactly one of Result and Err is set.
type Outcome struct {
	Index  int
	Input  string
	Result *output.ChainResult
	Err    error
}

// ResolveAll resolves inputs concurrently on a pool of concurrency workers.
// Outcomes arrive in completion order; the channel is closed once every
// dispatched input has been resolved. Cancelling ctx stops dispatch.
func (r *Resolver) ResolveAll(ctx context.Context, inputs []string, concurrency int) <-chan Outcome {
	if concurrency < 1 {
		concurrency = 1
	}

	type job struct {
		index int
		input string
	}

	results := make(chan Outcome, len(inputs))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				result, err := r.Resolve(ctx, j.input)
				results <- Outcome{Index: j.index, Input: j.input, Result: result, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, input := range inputs {
			select {
			case jobs <- job{index: i, input: input}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
