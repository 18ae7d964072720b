package model

import (
	"time"
)

// Cursor is the database model for durable job watermarks. The primary key is
// the composite (type, scope); rows are upserted, never duplicated
type Cursor struct {
	Type           string    `gorm:"primaryKey;size:32"`
	Scope          string    `gorm:"primaryKey;size:255"`
	CursorTime     time.Time `gorm:"not null"`
	LastUpdateTime time.Time `gorm:"not null"`
}

// TableName specifies the table name for Cursor
func (Cursor) TableName() string {
	return "cursors"
}
