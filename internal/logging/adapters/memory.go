package adapters

import (
	"sync"

	"dealer-inventory/internal/logging/types"
)

// MemoryAdapter keeps entries in memory. Used by tests and the CLI's quiet mode.
type MemoryAdapter struct {
	name    string
	entries []types.LogEntry
	mu      sync.Mutex
}

func NewMemoryAdapter(name string) *MemoryAdapter {
	return &MemoryAdapter{name: name}
}

func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *MemoryAdapter) Close() error {
	return nil
}

func (a *MemoryAdapter) Name() string {
	return a.name
}

// Entries returns a copy of everything written so far.
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Messages returns the message of every entry written so far.
func (a *MemoryAdapter) Messages() []string {
	entries := a.Entries()
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Message
	}
	return out
}
