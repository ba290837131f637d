package wsconsole

import (
	"sync"
)

type Category byte

const (
	CategoryInfo Category = iota
	CategorySuccess
	CategoryError
	CategoryNeutral
)

func (c Category) String() string {
	switch c {
	case CategoryInfo:
		return "info"
	case CategorySuccess:
		return "success"
	case CategoryError:
		return "error"
	case CategoryNeutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// EventType names the lifecycle event an entry was produced by.
type EventType byte

const (
	EventOpened EventType = iota + 1
	EventClosed
	EventErrored
	EventReceived
	EventDisconnectRequested
)

func (e EventType) String() string {
	switch e {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	case EventReceived:
		return "received"
	case EventDisconnectRequested:
		return "disconnect_requested"
	default:
		return "unknown"
	}
}

type LogEntry struct {
	Category Category
	Event    EventType
	Text     string
	Sequence uint64
}

// EventLog is an ordered, append-only record of lifecycle events that can only be reset as a whole.
// With a positive capacity the oldest entries are evicted once the log is full.
type EventLog struct {
	mu       sync.RWMutex
	entries  []LogEntry
	seq      uint64
	capacity int
}

func NewEventLog(capacity int) *EventLog {
	if capacity < 0 {
		capacity = 0
	}
	return &EventLog{capacity: capacity}
}

// Append stores a new entry at the end of the log and returns it.
func (l *EventLog) Append(category Category, event EventType, text string) LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	entry := LogEntry{
		Category: category,
		Event:    event,
		Text:     text,
		Sequence: l.seq,
	}

	if l.capacity > 0 && len(l.entries) >= l.capacity {
		n := copy(l.entries, l.entries[len(l.entries)-l.capacity+1:])
		l.entries = l.entries[:n]
	}

	l.entries = append(l.entries, entry)
	return entry
}

// Clear drops every entry. Sequence numbers keep growing across clears.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
}

// Snapshot returns a copy of the entries, oldest first.
func (l *EventLog) Snapshot() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}
