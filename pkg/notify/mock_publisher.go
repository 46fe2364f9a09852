package notify

import (
	"context"
	"sync"
)

// MockPublisher is a Publisher that records updates in memory, for tests and
// for running the server without a Kafka broker.
type MockPublisher struct {
	mu      sync.Mutex
	updates []*BookUpdate
	closed  bool
}

// NewMockPublisher creates an empty MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishBookUpdate records the update
func (m *MockPublisher) PublishBookUpdate(_ context.Context, u *BookUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, u)
	return nil
}

// Updates returns a copy of the recorded updates
func (m *MockPublisher) Updates() []*BookUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*BookUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

// Close marks the publisher as closed
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
