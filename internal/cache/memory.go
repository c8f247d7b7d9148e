package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an in-process store. With a positive size it evicts the least
// recently used entry; otherwise it grows without bound.
type Memory struct {
	lru *lru.Cache[string, Entry]

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an in-memory store holding at most size entries (0 = unbounded).
func NewMemory(size int) *Memory {
	if size > 0 {
		c, err := lru.New[string, Entry](size)
		if err == nil {
			return &Memory{lru: c}
		}
	}
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	if m.lru != nil {
		if e, ok := m.lru.Get(key); ok {
			return e, nil
		}
		return Entry{}, ErrMiss
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	if m.lru != nil {
		m.lru.Add(key, e)
		return nil
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len(context.Context) (int, error) {
	if m.lru != nil {
		return m.lru.Len(), nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close drops all entries.
func (m *Memory) Close() error {
	if m.lru != nil {
		m.lru.Purge()
		return nil
	}

	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}
