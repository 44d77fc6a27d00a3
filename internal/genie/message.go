// Package genie manages one dialogue with the Genie data assistant: an
// ordered message log, a backend-issued conversation identifier that is fixed
// after the first successful turn, and a single-flight submission policy.
package genie

import (
	"sort"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Row is one result row, column name to cell value.
type Row map[string]any

// Message is one entry in the transcript. Messages are immutable once
// appended; append order is conversation turn order and is never re-sorted.
type Message struct {
	Role    Role
	Content string
	Table   []Row // nil for text-only replies
	Time    time.Time
}

// HasTable reports whether the message carries a result set.
func (m Message) HasTable() bool { return len(m.Table) > 0 }

// Columns returns the header column set, taken from the first row. Rows are
// assumed to share it; rows that don't simply render blank cells. Keys are
// sorted so the header is stable across renders.
func (m Message) Columns() []string {
	if len(m.Table) == 0 {
		return nil
	}
	cols := make([]string, 0, len(m.Table[0]))
	for k := range m.Table[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
