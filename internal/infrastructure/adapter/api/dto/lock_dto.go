package dto

import (
	"time"

	"github.com/regsuite/registry-core/internal/domain/entity"
)

// LockRequest represents the API request for requesting a lock or unlock
type LockRequest struct {
	DomainName         string `json:"domainName" binding:"required"`
	RegistrarID        string `json:"registrarId" binding:"required"`
	RegistrarContactID string `json:"registrarContactId"`
	Superuser          bool   `json:"superuser"`
}

// VerifyRequest represents the API request for verifying a pending request
type VerifyRequest struct {
	VerificationCode string `json:"verificationCode" binding:"required"`
	Superuser        bool   `json:"superuser"`
}

// LockResponse represents a lock record in API responses. The verification
// code is only echoed back to the requester that created the record
type LockResponse struct {
	RevisionID       int64      `json:"revisionId"`
	RepoID           string     `json:"repoId"`
	DomainName       string     `json:"domainName"`
	RegistrarID      string     `json:"registrarId"`
	Action           string     `json:"action"`
	Status           string     `json:"status"`
	VerificationCode string     `json:"verificationCode,omitempty"`
	Superuser        bool       `json:"superuser"`
	RequestTime      time.Time  `json:"requestTime"`
	CompletionTime   *time.Time `json:"completionTime,omitempty"`
	RelockRevisionID *int64     `json:"relockRevisionId,omitempty"`
}

// NewLockResponse maps a lock record to its API representation
func NewLockResponse(lock *entity.Lock, includeCode bool) LockResponse {
	resp := LockResponse{
		RevisionID:       lock.RevisionID,
		RepoID:           lock.RepoID,
		DomainName:       lock.DomainName,
		RegistrarID:      lock.RegistrarID,
		Action:           string(lock.Action),
		Status:           string(lock.Status),
		Superuser:        lock.IsSuperuser,
		RequestTime:      lock.RequestTime,
		CompletionTime:   lock.CompletionTime,
		RelockRevisionID: lock.RelockRevisionID,
	}
	if includeCode {
		resp.VerificationCode = lock.VerificationCode
	}
	return resp
}

// LockListResponse represents a registrar's verified lock records
type LockListResponse struct {
	RegistrarID string         `json:"registrarId"`
	Locks       []LockResponse `json:"locks"`
}
