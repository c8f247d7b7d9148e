package worker

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// mockHandler simulates work with a delay per task.
type mockHandler struct {
	delay     time.Duration
	jitter    bool
	failTasks map[int]bool // tasks that should fail
	callCount atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *mockHandler) Handle(ctx context.Context, task int) (int, error) {
	m.callCount.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		peak := m.maxActive.Load()
		if n <= peak || m.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	delay := m.delay
	if m.jitter {
		delay = time.Duration(rand.Intn(10)) * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(delay):
	}

	if m.failTasks[task] {
		return 0, errors.New("simulated failure")
	}
	return task * 10, nil
}

func newPool(m *mockHandler, workers int, progress ProgressFunc) *Pool[int, int] {
	return New(Config[int, int]{
		Workers:    workers,
		Func:       m.Handle,
		OnProgress: progress,
	})
}

func TestPool_BasicExecution(t *testing.T) {
	h := &mockHandler{delay: 10 * time.Millisecond}

	results := newPool(h, 2, nil).Run(context.Background(), []int{1, 2, 3})

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for task %d: %v", r.Task, r.Err)
		}
		if r.Index != i || r.Value != r.Task*10 {
			t.Errorf("Result %d out of place: %+v", i, r)
		}
	}
	if h.callCount.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", h.callCount.Load())
	}
}

func TestPool_OrderIndependentOfCompletion(t *testing.T) {
	h := &mockHandler{jitter: true}

	tasks := make([]int, 100)
	for i := range tasks {
		tasks[i] = i
	}

	results := newPool(h, 8, nil).Run(context.Background(), tasks)

	for i, r := range results {
		if r.Index != i || r.Task != i || r.Value != i*10 {
			t.Fatalf("Result %d out of order: %+v", i, r)
		}
	}
}

func TestPool_Parallelism(t *testing.T) {
	h := &mockHandler{delay: 50 * time.Millisecond}

	tasks := make([]int, 8)
	start := time.Now()
	results := newPool(h, 4, nil).Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// 8 tasks at 50ms on 4 workers take about 100ms
	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}
	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}
	if h.maxActive.Load() > 4 {
		t.Errorf("Expected at most 4 concurrent tasks, saw %d", h.maxActive.Load())
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	h := &mockHandler{
		delay:     10 * time.Millisecond,
		failTasks: map[int]bool{2: true},
	}

	results := newPool(h, 2, nil).Run(context.Background(), []int{1, 2, 3})

	var failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task != 2 {
				t.Errorf("Unexpected failure for task %d", r.Task)
			}
		}
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	h := &mockHandler{delay: 100 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := newPool(h, 2, nil).Run(ctx, make([]int, 10))
	elapsed := time.Since(start)

	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}
	if len(results) != 10 {
		t.Fatalf("Expected a result for every task, got %d", len(results))
	}
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("Expected task %d to be cancelled, got %v", i, r.Err)
		}
		if r.Index != i {
			t.Errorf("Expected index %d, got %d", i, r.Index)
		}
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	h := &mockHandler{delay: 10 * time.Millisecond, failTasks: map[int]bool{3: true}}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal, lastFailed int

	newPool(h, 2, func(completed, total, failed int) {
		progressCalls.Add(1)
		lastCompleted = completed
		lastTotal = total
		lastFailed = failed
	}).Run(context.Background(), []int{1, 2, 3})

	if progressCalls.Load() != 3 {
		t.Errorf("Expected 3 progress callbacks, got %d", progressCalls.Load())
	}
	if lastCompleted != 3 || lastTotal != 3 || lastFailed != 1 {
		t.Errorf("Unexpected final progress %d/%d (%d failed)", lastCompleted, lastTotal, lastFailed)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	h := &mockHandler{}

	results := newPool(h, 2, nil).Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if h.callCount.Load() != 0 {
		t.Errorf("Expected 0 calls for empty tasks, got %d", h.callCount.Load())
	}
}

func TestNew_DefaultWorkers(t *testing.T) {
	p := New(Config[int, int]{Func: (&mockHandler{}).Handle})
	if p.Workers() != 1 {
		t.Errorf("Expected 1 worker by default, got %d", p.Workers())
	}
}
