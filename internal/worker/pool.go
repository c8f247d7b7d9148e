// Package worker provides a bounded parallel worker pool.
package worker

import (
	"context"
	"sync"
	"time"
)

// Func processes a single task.
type Func[T, R any] func(ctx context.Context, task T) (R, error)

// Result represents the outcome of a task. Index is the task's position in
// the slice passed to Run.
type Result[T, R any] struct {
	Index   int
	Task    T
	Value   R
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config[T, R any] struct {
	Workers    int
	Func       Func[T, R]
	OnProgress ProgressFunc
}

// Pool runs tasks on a fixed number of goroutines.
type Pool[T, R any] struct {
	workers    int
	fn         Func[T, R]
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New[T, R any](cfg Config[T, R]) *Pool[T, R] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool[T, R]{
		workers:    workers,
		fn:         cfg.Func,
		onProgress: cfg.OnProgress,
	}
}

// Workers returns the configured parallelism.
func (p *Pool[T, R]) Workers() int {
	return p.workers
}

// Run executes all tasks and returns one result per task, in task order
// regardless of completion order. It blocks until every task has finished
// or the context is cancelled; tasks not started by then report ctx.Err().
func (p *Pool[T, R]) Run(ctx context.Context, tasks []T) []Result[T, R] {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result[T, R], len(tasks))
	indexCh := make(chan int)

	// Track progress
	var (
		completed int
		failed    int
		mu        sync.Mutex
	)
	report := func(err error) {
		mu.Lock()
		completed++
		if err != nil {
			failed++
		}
		c, f := completed, failed
		if p.onProgress != nil {
			p.onProgress(c, len(tasks), f)
		}
		mu.Unlock()
	}

	// Start workers
	var wg sync.WaitGroup
	workers := min(p.workers, len(tasks))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				results[idx] = p.run(ctx, idx, tasks[idx])
				report(results[idx].Err)
			}
		}()
	}

	// Feed tasks
	fed := 0
feed:
	for fed < len(tasks) {
		select {
		case indexCh <- fed:
			fed++
		case <-ctx.Done():
			break feed
		}
	}
	close(indexCh)

	wg.Wait()

	for idx := fed; idx < len(tasks); idx++ {
		results[idx] = Result[T, R]{Index: idx, Task: tasks[idx], Err: ctx.Err()}
		report(results[idx].Err)
	}

	return results
}

func (p *Pool[T, R]) run(ctx context.Context, idx int, task T) Result[T, R] {
	if err := ctx.Err(); err != nil {
		return Result[T, R]{Index: idx, Task: task, Err: err}
	}

	start := time.Now()
	value, err := p.fn(ctx, task)
	return Result[T, R]{
		Index:   idx,
		Task:    task,
		Value:   value,
		Err:     err,
		Elapsed: time.Since(start),
	}
}
