package model

import (
	"time"
)

// RegistryLock is the database model for lock and unlock requests. The
// verification code is globally unique across every row ever written
type RegistryLock struct {
	RevisionID         int64      `gorm:"primaryKey;autoIncrement"`
	RepoID             string     `gorm:"not null;size:64;index:idx_registry_locks_repo_id"`
	DomainName         string     `gorm:"not null;size:255"`
	RegistrarID        string     `gorm:"not null;size:32;index:idx_registry_locks_registrar_id"`
	RegistrarContactID string     `gorm:"size:64"`
	Action             string     `gorm:"not null;size:8"`
	Status             string     `gorm:"not null;size:8"`
	VerificationCode   string     `gorm:"not null;size:64;uniqueIndex:idx_registry_locks_verification_code"`
	IsSuperuser        bool       `gorm:"not null"`
	RequestTime        time.Time  `gorm:"not null"`
	CompletionTime     *time.Time `gorm:""`
	RelockRevisionID   *int64     `gorm:""`
}

// TableName specifies the table name for RegistryLock
func (RegistryLock) TableName() string {
	return "registry_locks"
}
