package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
)

// DefaultVerificationCodeTTL bounds how long a pending request stays verifiable
const DefaultVerificationCodeTTL = time.Hour

// maxCodeAttempts bounds the collision-check loop for verification codes
const maxCodeAttempts = 8

// Config holds lock workflow settings
type Config struct {
	// VerificationCodeTTL is how long a PENDING request stays verifiable
	VerificationCodeTTL time.Duration
}

// Service is the registry lock workflow: requesting, verifying and reversing
// the security lock on a domain. Every operation runs as one short atomic
// transaction against the store, so the single-pending-request and
// code-uniqueness invariants hold under concurrent callers
type Service struct {
	store  persistence.Store
	clock  coreport.Clock
	logger coreport.Logger
	cfg    Config
}

// NewService creates a lock workflow service
func NewService(store persistence.Store, clock coreport.Clock, logger coreport.Logger, cfg Config) *Service {
	if cfg.VerificationCodeTTL <= 0 {
		cfg.VerificationCodeTTL = DefaultVerificationCodeTTL
	}
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger,
		cfg:    cfg,
	}
}

// newVerificationCode generates an unguessable single-use code, checked
// against every code ever issued so the global uniqueness invariant holds
func (s *Service) newVerificationCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := uuid.NewString()
		exists, err := s.store.Locks(ctx).VerificationCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.logger.Warn("Verification code collision, regenerating", map[string]any{
			"attempt": i + 1,
		})
	}
	return "", fmt.Errorf("%w: could not generate a unique verification code", errs.ErrInternalServer)
}
