package events

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Locks serializes writers per key. Events lock on their own ID and guild
// wide operations such as creation lock on the guild ID.
type Locks struct {
	mu      sync.Mutex
	entries map[snowflake.ID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{entries: make(map[snowflake.ID]*lockEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (l *Locks) Lock(key snowflake.ID) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
