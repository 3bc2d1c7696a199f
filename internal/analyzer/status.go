package analyzer

import (
	"sync"

	"github.com/justin4957/logflow-ipwatch/pkg/models"
)

// StatusBoard holds the most recently published status. The monitor writes
// it; any number of readers may take snapshots concurrently.
type StatusBoard struct {
	mu     sync.RWMutex
	status models.Status
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Publish replaces the current status
func (b *StatusBoard) Publish(status models.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Snapshot returns a copy of the current status
func (b *StatusBoard) Snapshot() models.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Return a copy
	status := b.status
	if b.status.TopIPs != nil {
		status.TopIPs = make([]models.IPCount, len(b.status.TopIPs))
		copy(status.TopIPs, b.status.TopIPs)
	}
	if b.status.LastAlert != nil {
		last := *b.status.LastAlert
		status.LastAlert = &last
	}
	return status
}
