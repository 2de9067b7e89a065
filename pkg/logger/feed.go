package logger

import (
	"sync"
	"time"
)

const defaultFeedCap = 50

// FeedEntry is one surfaced warning or error.
type FeedEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	At      time.Time              `json:"at"`
}

// Feed is a bounded in-memory ring of recent warn/error log lines, consumed
// by the dashboard's error area. Oldest entries are evicted first.
type Feed struct {
	mu      sync.Mutex
	entries []FeedEntry
	cap     int
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultFeedCap
	}
	return &Feed{cap: capacity}
}

func (f *Feed) Add(level, msg string, fields map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, FeedEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
		At:      time.Now(),
	})
	if len(f.entries) > f.cap {
		f.entries = f.entries[1:]
	}
}

// Recent returns a copy of the retained entries, oldest first.
func (f *Feed) Recent() []FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FeedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}
