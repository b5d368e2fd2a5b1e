package storage

import (
	"context"
	"sync"
)

// MockKV is a test double for KV. Methods without an override fall through
// to an in-memory store so tests only stub what they care about.
type MockKV struct {
	GetFn    func(context.Context, string) (string, bool, error)
	SetFn    func(context.Context, string, string) error
	DeleteFn func(context.Context, string) error

	mu              sync.Mutex
	backing         *Memory
	GetCallCount    int
	SetCallCount    int
	DeleteCallCount int
	SetCallArgs     []SetCallArg
	DeleteCallArgs  []string
}

// SetCallArg captures arguments passed to Set.
type SetCallArg struct {
	Key   string
	Value string
}

// NewMockKV creates a mock backed by an empty Memory store.
func NewMockKV() *MockKV {
	return &MockKV{backing: NewMemory()}
}

func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	m.GetCallCount++
	fn := m.GetFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key)
	}
	return m.store().Get(ctx, key)
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.SetCallCount++
	m.SetCallArgs = append(m.SetCallArgs, SetCallArg{Key: key, Value: value})
	fn := m.SetFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key, value)
	}
	return m.store().Set(ctx, key, value)
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.DeleteCallCount++
	m.DeleteCallArgs = append(m.DeleteCallArgs, key)
	fn := m.DeleteFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key)
	}
	return m.store().Delete(ctx, key)
}

// SetCalls returns a copy of the recorded Set calls.
func (m *MockKV) SetCalls() []SetCallArg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SetCallArg(nil), m.SetCallArgs...)
}

// SetCallsFor returns the recorded Set calls for a single key.
func (m *MockKV) SetCallsFor(key string) []SetCallArg {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SetCallArg
	for _, c := range m.SetCallArgs {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockKV) store() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backing == nil {
		m.backing = NewMemory()
	}
	return m.backing
}
