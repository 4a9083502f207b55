package gateway

import (
	"context"
	"fmt"

	"github.com/rahul/agentflow/internal/queue"
)

// Gateway is an ingress channel (Telegram, Discord, HTTP) that submits user
// requests to the task queue.
type Gateway interface {
	// Start begins the message listening loop and blocks until ctx is done
	Start(ctx context.Context) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Messenger is a gateway that can also deliver replies to a chat.
type Messenger interface {
	Gateway
	Send(chatID string, text string) error
}

// Submitter is the enqueue half of a queue.Queue.
type Submitter interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
}

func submit(ctx context.Context, q Submitter, channel, chatID, text string) (string, error) {
	id, err := q.Enqueue(ctx, queue.Task{Prompt: text, Channel: channel, ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", channel, err)
	}
	return id, nil
}

func ackText(id string) string {
	return fmt.Sprintf("Queued run %s. I'll send the report when it's ready.", id)
}
