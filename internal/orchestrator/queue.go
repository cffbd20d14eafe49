package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/omnihunter/internal/models"
)

// TaskQueue is a bounded FIFO of scan tasks that tracks unfinished work:
// a task counts from Put until the matching TaskDone.
type TaskQueue struct {
	tasks    chan models.ScanTask
	inFlight atomic.Int64

	mu         sync.Mutex
	unfinished int
	idle       chan struct{}
}

// NewTaskQueue creates a queue holding at most size tasks.
func NewTaskQueue(size int) *TaskQueue {
	if size < 1 {
		size = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &TaskQueue{tasks: make(chan models.ScanTask, size), idle: idle}
}

// Put blocks until there is room, ctx is done, or abort is closed.
func (q *TaskQueue) Put(ctx context.Context, task models.ScanTask, abort <-chan struct{}) error {
	q.mu.Lock()
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		q.release()
		return ctx.Err()
	case <-abort:
		q.release()
		return errStopped
	}
}

// Get waits up to timeout for a task. A returned task is in flight until TaskDone.
func (q *TaskQueue) Get(timeout time.Duration) (models.ScanTask, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case task := <-q.tasks:
		q.inFlight.Add(1)
		return task, true
	case <-timer.C:
		return models.ScanTask{}, false
	}
}

// TaskDone marks one task returned by Get as finished.
func (q *TaskQueue) TaskDone() {
	q.inFlight.Add(-1)
	q.release()
}

func (q *TaskQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished == 0 {
		panic("orchestrator: TaskDone called more times than tasks were queued")
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Join blocks until every queued task is done, ctx is done, or abort is closed.
func (q *TaskQueue) Join(ctx context.Context, abort <-chan struct{}) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-abort:
		return errStopped
	}
}

// Depth is the number of tasks waiting to be dequeued.
func (q *TaskQueue) Depth() int {
	return len(q.tasks)
}

// InFlight is the number of dequeued tasks not yet done.
func (q *TaskQueue) InFlight() int {
	return int(q.inFlight.Load())
}

// Drained reports whether nothing is queued or in flight.
func (q *TaskQueue) Drained() bool {
	return q.Depth() == 0 && q.InFlight() == 0
}
