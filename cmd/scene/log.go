package scene

import "sync"

// Log is an append-only, concurrency-safe sequence. The follower appends to
// it while the player reads it through the Sequence interface.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

// NewLog creates a log seeded with initial events.
func NewLog(initial ...Event) *Log {
	events := make([]Event, len(initial))
	copy(events, initial)
	return &Log{events: events}
}

// Append adds events to the end of the log and returns the new length.
func (l *Log) Append(events ...Event) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
	return len(l.events)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func (l *Log) At(i int) Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events[i]
}

// Snapshot returns a copy of the current contents.
func (l *Log) Snapshot() Events {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Events, len(l.events))
	copy(out, l.events)
	return out
}
