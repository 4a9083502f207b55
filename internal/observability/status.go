package observability

import (
	"sync"
	"time"
)

type Role string

const (
	RoleIdle         Role = "IDLE"
	RoleOrchestrator Role = "ORCHESTRATOR"
	RoleLeaf         Role = "LEAF"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentRole   Role
	ActiveUnit    string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentRole:   RoleIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus records which executing unit currently holds the thread of control.
func SetStatus(role Role, unit string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentRole = role
	globalStatus.ActiveUnit = unit
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Role, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentRole, globalStatus.ActiveUnit, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
