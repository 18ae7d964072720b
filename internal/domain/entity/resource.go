package entity

import (
	"time"
)

// ResourceType identifies the class of a versioned registry resource
type ResourceType string

const (
	ResourceTypeDomain  ResourceType = "DOMAIN"
	ResourceTypeContact ResourceType = "CONTACT"
	ResourceTypeHost    ResourceType = "HOST"
)

// AllResourceTypes lists every resource class in sweep order
var AllResourceTypes = []ResourceType{ResourceTypeDomain, ResourceTypeContact, ResourceTypeHost}

// StatusValue is an EPP status flag carried on a resource
type StatusValue string

const (
	StatusOK                        StatusValue = "ok"
	StatusPendingDelete             StatusValue = "pendingDelete"
	StatusPendingTransfer           StatusValue = "pendingTransfer"
	StatusServerDeleteProhibited    StatusValue = "serverDeleteProhibited"
	StatusServerTransferProhibited  StatusValue = "serverTransferProhibited"
	StatusServerUpdateProhibited    StatusValue = "serverUpdateProhibited"
	StatusClientTransferProhibited  StatusValue = "clientTransferProhibited"
	StatusClientUpdateProhibited    StatusValue = "clientUpdateProhibited"
)

// RegistryLockStatuses is the exact status set a verified registry lock applies
// to a domain and a verified unlock removes
var RegistryLockStatuses = []StatusValue{
	StatusServerDeleteProhibited,
	StatusServerTransferProhibited,
	StatusServerUpdateProhibited,
}

// TransferStatus is the state of a registrar-to-registrar transfer
type TransferStatus string

const (
	TransferStatusPending        TransferStatus = "PENDING"
	TransferStatusServerApproved TransferStatus = "SERVER_APPROVED"
	TransferStatusClientApproved TransferStatus = "CLIENT_APPROVED"
	TransferStatusRejected       TransferStatus = "REJECTED"
	TransferStatusCancelled      TransferStatus = "CANCELLED"
)

// TransferData is the pending-transfer window attached to a resource
type TransferData struct {
	Status              TransferStatus
	GainingRegistrarID  string
	RequestTime         time.Time
	PendingTransferTime time.Time // when a pending transfer matures
}

// Resource is a versioned domain, contact or host record. The repository id is
// stable for the lifetime of the record; deletion is a soft delete via
// DeletionTime and records are never physically removed by this core
type Resource struct {
	RepoID             string
	Type               ResourceType
	DomainName         string // fully-qualified; empty for contacts and hosts
	SponsorRegistrarID string
	Statuses           []StatusValue
	TransferData       *TransferData
	CreationTime       time.Time
	UpdateTime         time.Time
	DeletionTime       *time.Time
}

// HasStatus reports whether the resource carries the given status flag
func (r *Resource) HasStatus(s StatusValue) bool {
	for _, v := range r.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// HasAllStatuses reports whether the resource carries every status in the set
func (r *Resource) HasAllStatuses(set []StatusValue) bool {
	for _, s := range set {
		if !r.HasStatus(s) {
			return false
		}
	}
	return true
}

// AddStatus adds a status flag; adding an existing flag is a no-op.
// Returns true if the status set changed
func (r *Resource) AddStatus(s StatusValue) bool {
	if r.HasStatus(s) {
		return false
	}
	r.Statuses = append(r.Statuses, s)
	return true
}

// RemoveStatus removes a status flag if present. Returns true if the status
// set changed
func (r *Resource) RemoveStatus(s StatusValue) bool {
	for i, v := range r.Statuses {
		if v == s {
			r.Statuses = append(r.Statuses[:i], r.Statuses[i+1:]...)
			return true
		}
	}
	return false
}

// IsDeletedAt reports whether the resource is soft-deleted as of t
func (r *Resource) IsDeletedAt(t time.Time) bool {
	return r.DeletionTime != nil && !t.Before(*r.DeletionTime)
}

// HasExpiredPendingTransfer reports whether a pending transfer matured at or
// before t without being resolved
func (r *Resource) HasExpiredPendingTransfer(t time.Time) bool {
	return r.TransferData != nil &&
		r.TransferData.Status == TransferStatusPending &&
		!t.Before(r.TransferData.PendingTransferTime)
}

// ProjectAt recomputes time-derived state as of t and reports whether any
// persisted field changed. Currently the only projection is resolving a
// pending transfer whose window has elapsed: the transfer is server-approved,
// sponsorship moves to the gaining registrar, and the pendingTransfer status
// flag is dropped. Callers must persist the resource only when this returns
// true, and must set UpdateTime to the projection time when they do
func (r *Resource) ProjectAt(t time.Time) bool {
	if !r.HasExpiredPendingTransfer(t) {
		return false
	}
	r.TransferData.Status = TransferStatusServerApproved
	if r.TransferData.GainingRegistrarID != "" {
		r.SponsorRegistrarID = r.TransferData.GainingRegistrarID
	}
	r.RemoveStatus(StatusPendingTransfer)
	return true
}

// Clone returns a deep copy so projections never mutate shared state
func (r *Resource) Clone() *Resource {
	out := *r
	out.Statuses = append([]StatusValue(nil), r.Statuses...)
	if r.TransferData != nil {
		td := *r.TransferData
		out.TransferData = &td
	}
	if r.DeletionTime != nil {
		dt := *r.DeletionTime
		out.DeletionTime = &dt
	}
	return &out
}
