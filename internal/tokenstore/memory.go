package tokenstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store.  Credentials are lost on exit.
type Memory struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewMemory() *Memory { return &Memory{vals: map[string]string{}} }

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.vals[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.vals = map[string]string{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
