package bans

import (
	"sort"
	"sync"
	"time"
)

// Memory is a process-local ban list, used when the database is disabled.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory { return &Memory{entries: map[string]Entry{}} }

func (m *Memory) IsBanned(ip string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[ip]
	return ok
}

func (m *Memory) Ban(ip, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ip] = Entry{IP: ip, Reason: reason, BannedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) Remove(ip string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[ip]
	delete(m.entries, ip)
	return ok, nil
}

func (m *Memory) List() []Entry {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

func (m *Memory) Close() error { return nil }
