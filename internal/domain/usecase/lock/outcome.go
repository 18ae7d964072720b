package lock

import (
	"github.com/regsuite/registry-core/internal/domain/entity"
)

// OutcomeStatus classifies how a lock workflow action ended. Rejections are
// expected operator-error conditions and must not be retried; failures are
// unexpected faults and may be
type OutcomeStatus int

const (
	// OutcomeSuccess means the action completed, possibly as a no-op
	OutcomeSuccess OutcomeStatus = iota
	// OutcomeRejected means the request was invalid (unknown code, stale
	// domain); retrying will not help
	OutcomeRejected
	// OutcomeFailed means an unexpected fault occurred; the action may be retried
	OutcomeFailed
)

// Outcome is the structured, human-readable result of a workflow action that
// reports operator errors as data instead of propagating them. Success
// outcomes carry no error text
type Outcome struct {
	Status  OutcomeStatus
	Message string
	Lock    *entity.Lock
}

// Succeeded reports whether the action completed
func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}
