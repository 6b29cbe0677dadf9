package batch

import (
	"context"
	"sync"

	"bennypowers.dev/templatetag/internal/log"
)

// Task is one input of a pool run with its outcome
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
}

// ProcessFunc processes a single input
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Pool runs inputs through a fixed number of workers
type Pool[T any, R any] struct {
	workers int
	process ProcessFunc[T, R]
}

// NewPool creates a pool of the given size, at least one
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{
		workers: workers,
		process: fn,
	}
}

// Execute processes every input and returns the tasks in input order.
// Cancellation is checked between inputs; inputs never started carry the
// context's error.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	tasks := make([]Task[T, R], len(inputs))
	for i, input := range inputs {
		tasks[i] = Task[T, R]{Input: input}
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := range p.workers {
		wg.Go(func() {
			for i := range indices {
				if err := ctx.Err(); err != nil {
					tasks[i].Err = err
					continue
				}
				tasks[i].Result, tasks[i].Err = p.process(ctx, inputs[i])
				if tasks[i].Err != nil {
					log.Debug("Worker %d: task %d failed: %v", w, i, tasks[i].Err)
				}
			}
		})
	}

	for i := range inputs {
		select {
		case <-ctx.Done():
			tasks[i].Err = ctx.Err()
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()
	return tasks
}
