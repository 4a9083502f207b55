package store

import "time"

// Run status values.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one top-level request handled by the orchestrator.
type Run struct {
	ID         string     `json:"id"`
	Identity   string     `json:"identity"`
	Prompt     string     `json:"prompt"`
	Channel    string     `json:"channel,omitempty"`
	ChatID     string     `json:"chat_id,omitempty"`
	Status     string     `json:"status"`
	Report     string     `json:"report,omitempty"`
	Error      string     `json:"error,omitempty"`
	Keys       []string   `json:"keys,omitempty"` // Data Store keys at completion
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the run reached a terminal status.
func (r Run) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
