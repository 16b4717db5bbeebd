package async

import (
	"sync"

	"github.com/ethioshop/marketplace/internal/notifier"
)

// PushQueue buffers outbound push tasks for background dispatch.
type PushQueue struct {
	mu    sync.Mutex
	tasks []notifier.PushTask
}

// NewPushQueue returns an empty push queue instance.
func NewPushQueue() *PushQueue {
	return &PushQueue{tasks: make([]notifier.PushTask, 0)}
}

// EnqueuePush appends a pending push task.
func (q *PushQueue) EnqueuePush(task notifier.PushTask) {
	if q == nil || task.RecipientID == "" {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Drain returns all pending tasks and clears the buffer.
func (q *PushQueue) Drain() []notifier.PushTask {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.tasks
	q.tasks = make([]notifier.PushTask, 0)
	return drained
}

// Requeue prepends a task for retry on the next dispatch pass.
func (q *PushQueue) Requeue(task notifier.PushTask) {
	if q == nil || task.RecipientID == "" {
		return
	}
	q.mu.Lock()
	q.tasks = append([]notifier.PushTask{task}, q.tasks...)
	q.mu.Unlock()
}

// Pending reports buffered push tasks.
func (q *PushQueue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
