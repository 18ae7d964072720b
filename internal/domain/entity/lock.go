package entity

import (
	"time"
)

// LockAction distinguishes a lock request from an unlock request
type LockAction string

const (
	LockActionLock   LockAction = "LOCK"
	LockActionUnlock LockAction = "UNLOCK"
)

// LockStatus is the lifecycle state of a lock record. A record is created
// PENDING, becomes VERIFIED exactly once and never reverts; a PENDING record
// whose verification window lapses is treated as EXPIRED
type LockStatus string

const (
	LockStatusPending  LockStatus = "PENDING"
	LockStatusVerified LockStatus = "VERIFIED"
	LockStatusExpired  LockStatus = "EXPIRED"
)

// Lock is one lock or unlock request against a domain. The verification code
// is the single credential needed to complete the request; it is unguessable
// and unique across every lock ever created
type Lock struct {
	// RevisionID is assigned by the store on first save and is monotonic
	RevisionID         int64
	RepoID             string
	DomainName         string
	RegistrarID        string
	RegistrarContactID string
	Action             LockAction
	Status             LockStatus
	VerificationCode   string
	IsSuperuser        bool
	RequestTime        time.Time
	CompletionTime     *time.Time
	// RelockRevisionID back-references the successor lock created by a relock.
	// Only ever set on a VERIFIED unlock, and immutable once set
	RelockRevisionID *int64
}

// IsVerified reports whether the request has been completed
func (l *Lock) IsVerified() bool {
	return l.Status == LockStatusVerified
}

// IsExpiredAt reports whether a still-pending request has outlived its
// verification window of ttl
func (l *Lock) IsExpiredAt(t time.Time, ttl time.Duration) bool {
	if l.Status == LockStatusExpired {
		return true
	}
	return l.Status == LockStatusPending && t.After(l.RequestTime.Add(ttl))
}

// Complete marks the request verified at t. The transition is one-way; callers
// must have checked the current status inside the same transaction
func (l *Lock) Complete(t time.Time) {
	l.Status = LockStatusVerified
	completion := t
	l.CompletionTime = &completion
}

// SetRelock records the successor lock on a verified unlock
func (l *Lock) SetRelock(revisionID int64) {
	rid := revisionID
	l.RelockRevisionID = &rid
}

// Clone returns a deep copy of the lock record
func (l *Lock) Clone() *Lock {
	out := *l
	if l.CompletionTime != nil {
		ct := *l.CompletionTime
		out.CompletionTime = &ct
	}
	if l.RelockRevisionID != nil {
		rid := *l.RelockRevisionID
		out.RelockRevisionID = &rid
	}
	return &out
}
