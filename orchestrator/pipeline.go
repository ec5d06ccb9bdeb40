package orchestrator

import (
	"context"
	"sync"
)

// Result pairs a stage output with the error for that input.
type Result[Out any] struct {
	Value Out
	Err   error
	Index int // Original index in the input slice
}

// Stage is a bounded-concurrency processing step applied to a batch.
type Stage[In, Out any] struct {
	Name        string
	Concurrency int
	Process     func(ctx context.Context, input In) (Out, error)
}

// RunStage applies the stage to every input with at most Concurrency workers.
// Results keep input order; a cancelled context marks unprocessed inputs with
// the context error instead of abandoning them silently.
func RunStage[In, Out any](ctx context.Context, stage Stage[In, Out], inputs []In) []Result[Out] {
	if len(inputs) == 0 {
		return nil
	}

	concurrency := stage.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	if concurrency > len(inputs) {
		concurrency = len(inputs)
	}

	results := make([]Result[Out], len(inputs))
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup

	for i, input := range inputs {
		wg.Add(1)

		go func(idx int, in In) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result[Out]{Err: ctx.Err(), Index: idx}
				return
			}

			if err := ctx.Err(); err != nil {
				results[idx] = Result[Out]{Err: err, Index: idx}
				return
			}

			out, err := stage.Process(ctx, in)
			results[idx] = Result[Out]{Value: out, Err: err, Index: idx}
		}(i, input)
	}

	wg.Wait()

	return results
}
