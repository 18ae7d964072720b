package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Caller errors (expected business outcomes)
	CodeAlreadyLocked           = 4001
	CodeAlreadyUnlocked         = 4002
	CodeUnknownVerificationCode = 4003
	CodeVerificationCodeExpired = 4004
	CodeDomainDeleted           = 4005
	CodePendingDelete           = 4006
	CodePendingTransfer         = 4007
	CodeRegistrarChanged        = 4008
	CodeRelockAlreadySet        = 4009
	CodeSuperuserOnly           = 4010
	CodeResourceNotFound        = 4040
	CodeCursorNotFound          = 4041
	CodeConcurrentModification  = 4090

	// 5xxx - Infrastructure and programmer errors
	CodeInternalServer   = 5000
	CodeStoreUnavailable = 5030
	CodeNotInTransaction = 5090
)

// Base error types
var (
	// ErrAlreadyLocked is returned when a lock is requested for a domain that is
	// already registry-locked or has a pending lock request
	ErrAlreadyLocked = errors.New("domain is already locked or has a pending lock request")

	// ErrAlreadyUnlocked is returned when an unlock is requested for a domain that
	// carries no registry lock or already has a pending unlock request
	ErrAlreadyUnlocked = errors.New("domain is not locked or has a pending unlock request")

	// ErrUnknownVerificationCode is returned when no lock record exists for a code
	ErrUnknownVerificationCode = errors.New("unknown verification code")

	// ErrVerificationCodeExpired is returned when a pending lock has outlived
	// its verification window
	ErrVerificationCodeExpired = errors.New("verification code has expired")

	// ErrDomainDeleted is returned when the target domain does not exist or has
	// been soft-deleted since the lock was requested
	ErrDomainDeleted = errors.New("domain does not exist or has been deleted")

	// ErrPendingDelete is returned when the target domain has a pending delete
	ErrPendingDelete = errors.New("domain has a pending delete")

	// ErrPendingTransfer is returned when the target domain has a pending transfer
	ErrPendingTransfer = errors.New("domain has a pending transfer")

	// ErrRegistrarChanged is returned when domain sponsorship moved to another
	// registrar between the unlock and the relock
	ErrRegistrarChanged = errors.New("domain has been transferred to another registrar")

	// ErrRelockAlreadySet is returned when the unlock record already references
	// a successor lock
	ErrRelockAlreadySet = errors.New("relock already set on unlock record")

	// ErrSuperuserOnly is returned when a non-superuser attempts to verify a
	// lock that was requested with the superuser bypass
	ErrSuperuserOnly = errors.New("lock can only be verified by a superuser")

	// ErrConcurrentModification is returned when a single-use verification code
	// has already been applied
	ErrConcurrentModification = errors.New("verification code has already been used")

	// ErrResourceNotFound is returned when the requested resource doesn't exist
	ErrResourceNotFound = errors.New("resource not found")

	// ErrCursorNotFound is returned when no cursor row exists for a (type, scope) key
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrNotInTransaction is returned when a transactional operation is invoked
	// outside a transaction; this is a programmer error and is never recovered
	ErrNotInTransaction = errors.New("not in a transaction")

	// ErrStoreUnavailable is returned when the authoritative store cannot serve
	// a read or write; callers must treat this as an outage
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateKey is returned when a unique constraint is violated
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrAlreadyLocked):
		return CodeAlreadyLocked
	case errors.Is(err, ErrAlreadyUnlocked):
		return CodeAlreadyUnlocked
	case errors.Is(err, ErrUnknownVerificationCode):
		return CodeUnknownVerificationCode
	case errors.Is(err, ErrVerificationCodeExpired):
		return CodeVerificationCodeExpired
	case errors.Is(err, ErrDomainDeleted):
		return CodeDomainDeleted
	case errors.Is(err, ErrPendingDelete):
		return CodePendingDelete
	case errors.Is(err, ErrPendingTransfer):
		return CodePendingTransfer
	case errors.Is(err, ErrRegistrarChanged):
		return CodeRegistrarChanged
	case errors.Is(err, ErrRelockAlreadySet):
		return CodeRelockAlreadySet
	case errors.Is(err, ErrSuperuserOnly):
		return CodeSuperuserOnly
	case errors.Is(err, ErrConcurrentModification):
		return CodeConcurrentModification
	case errors.Is(err, ErrResourceNotFound):
		return CodeResourceNotFound
	case errors.Is(err, ErrCursorNotFound):
		return CodeCursorNotFound
	case errors.Is(err, ErrNotInTransaction):
		return CodeNotInTransaction
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternalServer
	}
}

// IsBusinessOutcome reports whether the error is an expected operator-facing
// state rather than a fault. Business outcomes are converted to structured
// responses at the workflow boundary; everything else propagates
func IsBusinessOutcome(err error) bool {
	return ErrorCode(err) < 5000
}

// LockError represents a failure of a lock workflow operation against one domain
type LockError struct {
	DomainName       string
	Action           string
	VerificationCode string
	Err              error
}

// Error implements the error interface for LockError
func (e *LockError) Error() string {
	return fmt.Sprintf("lock operation %s failed for domain %s: %v", e.Action, e.DomainName, e.Err)
}

// Unwrap returns the underlying error
func (e *LockError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *LockError) LogFields() map[string]any {
	return map[string]any{
		"error_type":        "lock_error",
		"domain_name":       e.DomainName,
		"action":            e.Action,
		"verification_code": e.VerificationCode,
		"error":             e.Err.Error(),
		"error_code":        ErrorCode(e.Err),
	}
}

// NewLockError creates a detailed lock workflow error
func NewLockError(domainName, action, verificationCode string, err error) error {
	return &LockError{
		DomainName:       domainName,
		Action:           action,
		VerificationCode: verificationCode,
		Err:              err,
	}
}

// StoreError represents a failure against a named backing store
type StoreError struct {
	Store     string
	Operation string
	Err       error
}

// Error implements the error interface for StoreError
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed during %s: %v", e.Store, e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is checks if the target error is an ErrStoreUnavailable
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// LogFields returns a map of fields for structured logging
func (e *StoreError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "store_error",
		"store":      e.Store,
		"operation":  e.Operation,
		"error":      e.Err.Error(),
		"error_code": CodeStoreUnavailable,
	}
}

// NewStoreError creates a detailed store error
func NewStoreError(store, operation string, err error) error {
	return &StoreError{Store: store, Operation: operation, Err: err}
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrUnknownVerificationCode) ||
		errors.Is(err, ErrCursorNotFound)
}

// IsConcurrencyError checks if the error is a double-application of a single-use code
func IsConcurrencyError(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
