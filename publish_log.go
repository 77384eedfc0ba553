package match

import (
	"sync"

	"github.com/ordinex/venue/protocol"
)

// Broadcaster hands a rendered depth snapshot to the realtime fan-out
// collaborator. A failure is isolated to the snapshot path; it never
// reaches the matching critical section.
type Broadcaster interface {
	BroadcastDepth(snapshot *protocol.DepthSnapshot) error
}

// MemoryBroadcaster stores snapshots in memory, useful for testing.
type MemoryBroadcaster struct {
	mu        sync.RWMutex
	snapshots []*protocol.DepthSnapshot
}

// NewMemoryBroadcaster creates a new MemoryBroadcaster.
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{
		snapshots: make([]*protocol.DepthSnapshot, 0),
	}
}

// BroadcastDepth appends the snapshot to the in-memory slice.
func (m *MemoryBroadcaster) BroadcastDepth(snapshot *protocol.DepthSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

// Count returns the number of snapshots stored.
func (m *MemoryBroadcaster) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// Last returns the most recent snapshot, or nil if none was broadcast.
func (m *MemoryBroadcaster) Last() *protocol.DepthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1]
}
