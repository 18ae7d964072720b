package entity

import (
	"time"
)

// CursorType enumerates the jobs that checkpoint progress through a cursor
type CursorType string

const (
	CursorTypeResaveAllResources CursorType = "RESAVE_ALL_RESOURCES"
	CursorTypeRecurringBilling   CursorType = "RECURRING_BILLING"
	CursorTypeRegistrarExport    CursorType = "REGISTRAR_EXPORT"
)

// GlobalCursorScope is the scope of a cursor that is not specific to one
// tenant or partition. The store forbids null scopes, so a missing scope is
// normalized to this sentinel
const GlobalCursorScope = "GLOBAL"

// CursorID is the composite key of a cursor row, with value equality
type CursorID struct {
	Type  CursorType
	Scope string
}

// NewCursorID builds a key, normalizing an empty scope to GlobalCursorScope
func NewCursorID(t CursorType, scope string) CursorID {
	if scope == "" {
		scope = GlobalCursorScope
	}
	return CursorID{Type: t, Scope: scope}
}

// Cursor is a durable resumable watermark for one (job type, scope) pair.
// Exactly one row exists per key; updates overwrite, never duplicate
type Cursor struct {
	Type           CursorType
	Scope          string
	CursorTime     time.Time
	LastUpdateTime time.Time
}

// NewCursor creates a cursor, normalizing an empty scope to the global sentinel
func NewCursor(t CursorType, scope string, cursorTime, now time.Time) *Cursor {
	id := NewCursorID(t, scope)
	return &Cursor{
		Type:           id.Type,
		Scope:          id.Scope,
		CursorTime:     cursorTime,
		LastUpdateTime: now,
	}
}

// ID returns the composite key of this cursor
func (c *Cursor) ID() CursorID {
	return CursorID{Type: c.Type, Scope: c.Scope}
}
