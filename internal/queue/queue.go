package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue closed")

// Task is a top-level request waiting for the orchestrator.
type Task struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Channel     string    `json:"channel,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Queue accepts task submissions and hands them to a consumer in FIFO order.
type Queue interface {
	Enqueue(ctx context.Context, task Task) (string, error)
	Dequeue(ctx context.Context) (Task, error)
	Close() error
}

// prepare assigns an id and submission time if the caller left them empty.
func prepare(task Task) Task {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}
	return task
}

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	tasks     chan Task
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryQueue{
		tasks: make(chan Task, buffer),
		done:  make(chan struct{}),
	}
}

// Enqueue blocks while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) (string, error) {
	task = prepare(task)
	select {
	case <-q.done:
		return "", ErrClosed
	default:
	}
	select {
	case q.tasks <- task:
		return task.ID, nil
	case <-q.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Task, error) {
	select {
	case t := <-q.tasks:
		return t, nil
	case <-q.done:
		return Task{}, ErrClosed
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
