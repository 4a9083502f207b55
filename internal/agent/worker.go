package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rahul/agentflow/internal/queue"
	"github.com/rahul/agentflow/internal/store"
)

// Messenger delivers a finished run back to the channel it came from.
type Messenger interface {
	Send(chatID string, text string) error
}

// RunHistory is the subset of store.HistoryStore the worker records into.
type RunHistory interface {
	RecordQueued(ctx context.Context, run store.Run) error
	MarkRunning(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, report string, keys []string, runErr error) error
}

// Worker consumes queued tasks one at a time and runs each through the
// pool's orchestrator.
type Worker struct {
	Queue      queue.Queue
	Pool       *Pool
	History    RunHistory
	Messengers map[string]Messenger
}

func NewWorker(q queue.Queue, pool *Pool, history RunHistory) *Worker {
	return &Worker{
		Queue:      q,
		Pool:       pool,
		History:    history,
		Messengers: make(map[string]Messenger),
	}
}

// AddMessenger registers the reply path for tasks submitted on channel.
func (w *Worker) AddMessenger(channel string, m Messenger) {
	w.Messengers[channel] = m
}

// Start blocks until ctx is cancelled or the queue is closed.
func (w *Worker) Start(ctx context.Context) error {
	log.Println("Task worker started...")
	for {
		task, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			log.Printf("Error dequeuing task: %v", err)
			continue
		}
		w.Handle(ctx, task)
	}
}

// Handle runs a single task and returns the orchestrator's final store.
func (w *Worker) Handle(ctx context.Context, task queue.Task) (map[string]any, error) {
	identity := w.Pool.Orchestrator()
	if w.History != nil {
		if err := w.History.RecordQueued(ctx, store.Run{
			ID:        task.ID,
			Identity:  identity,
			Prompt:    task.Prompt,
			Channel:   task.Channel,
			ChatID:    task.ChatID,
			CreatedAt: task.SubmittedAt,
		}); err != nil {
			log.Printf("Error recording task %s: %v", task.ID, err)
		}
		if err := w.History.MarkRunning(ctx, task.ID); err != nil {
			log.Printf("Error marking task %s running: %v", task.ID, err)
		}
	}

	log.Printf("Executing task %s from %s: %s", task.ID, task.Channel, task.Prompt)
	out, runErr := w.Pool.Execute(WithRunID(ctx, task.ID), identity, map[string]any{PromptKey: task.Prompt})

	report := ""
	if r, ok := out[ReportKey].(string); ok {
		report = r
	}
	if w.History != nil {
		if err := w.History.MarkFinished(ctx, task.ID, report, sortedKeys(out), runErr); err != nil {
			log.Printf("Error finishing task %s: %v", task.ID, err)
		}
	}

	if m, ok := w.Messengers[task.Channel]; ok && task.ChatID != "" {
		if err := m.Send(task.ChatID, replyText(task, report, runErr)); err != nil {
			log.Printf("Error notifying %s chat %s: %v", task.Channel, task.ChatID, err)
		}
	}
	return out, runErr
}

func replyText(task queue.Task, report string, runErr error) string {
	switch {
	case runErr != nil:
		return fmt.Sprintf("Run %s failed: %v", task.ID, runErr)
	case report == "":
		return fmt.Sprintf("Run %s finished without a report.", task.ID)
	default:
		return fmt.Sprintf("Run %s finished. Report saved at: %s", task.ID, report)
	}
}
