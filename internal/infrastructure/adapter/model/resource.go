package model

import (
	"time"
)

// Resource is the database model for versioned registry resources (domains,
// contacts, hosts). Status flags are stored as a comma-joined list; a resource
// is soft-deleted by setting deletion_time and never physically removed
type Resource struct {
	RepoID             string     `gorm:"primaryKey;size:64"`
	Type               string     `gorm:"not null;size:16;index:idx_resources_type_repo_id,priority:1"`
	DomainName         string     `gorm:"size:255;index:idx_resources_domain_name"`
	SponsorRegistrarID string     `gorm:"not null;size:32"`
	Statuses           string     `gorm:"size:512"`
	CreationTime       time.Time  `gorm:"not null"`
	UpdateTime         time.Time  `gorm:"not null"`
	DeletionTime       *time.Time `gorm:""`

	// Pending-transfer window, null when no transfer was ever requested
	TransferStatus       *string    `gorm:"size:32"`
	TransferGainingID    *string    `gorm:"size:32"`
	TransferRequestTime  *time.Time `gorm:""`
	TransferPendingUntil *time.Time `gorm:"index:idx_resources_pending_transfer"`
}

// TableName specifies the table name for Resource
func (Resource) TableName() string {
	return "resources"
}
