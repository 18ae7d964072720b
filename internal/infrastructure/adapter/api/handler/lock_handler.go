package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regsuite/registry-core/internal/domain/entity"
	domainerr "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	lockUseCase "github.com/regsuite/registry-core/internal/domain/usecase/lock"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/dto"
)

// LockHandler handles registry lock workflow HTTP requests
type LockHandler struct {
	lockService *lockUseCase.Service
	logger      coreport.Logger
	metrics     coreport.Metrics
}

// NewLockHandler creates a new lock handler instance
func NewLockHandler(lockService *lockUseCase.Service, logger coreport.Logger, metrics coreport.Metrics) *LockHandler {
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	return &LockHandler{
		lockService: lockService,
		logger:      logger,
		metrics:     metrics,
	}
}

// RequestLock handles the POST /locks endpoint
func (h *LockHandler) RequestLock(c *gin.Context) {
	h.request(c, entity.LockActionLock)
}

// RequestUnlock handles the POST /unlocks endpoint
func (h *LockHandler) RequestUnlock(c *gin.Context) {
	h.request(c, entity.LockActionUnlock)
}

func (h *LockHandler) request(c *gin.Context, action entity.LockAction) {
	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid lock request format", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	var (
		lock *entity.Lock
		err  error
	)
	if action == entity.LockActionLock {
		lock, err = h.lockService.RequestLock(c.Request.Context(), req.DomainName, req.RegistrarID, req.RegistrarContactID, req.Superuser)
	} else {
		lock, err = h.lockService.RequestUnlock(c.Request.Context(), req.DomainName, req.RegistrarID, req.RegistrarContactID, req.Superuser)
	}
	if err != nil {
		h.metrics.RecordLockOutcome(string(action), "error")
		h.respondError(c, err)
		return
	}

	h.metrics.RecordLockOutcome(string(action), "requested")
	c.JSON(http.StatusCreated, dto.NewLockResponse(lock, true))
}

// VerifyLock handles the POST /locks/verify endpoint
func (h *LockHandler) VerifyLock(c *gin.Context) {
	h.verify(c, entity.LockActionLock)
}

// VerifyUnlock handles the POST /unlocks/verify endpoint
func (h *LockHandler) VerifyUnlock(c *gin.Context) {
	h.verify(c, entity.LockActionUnlock)
}

func (h *LockHandler) verify(c *gin.Context, action entity.LockAction) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid verify request format", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	var (
		lock *entity.Lock
		err  error
	)
	if action == entity.LockActionLock {
		lock, err = h.lockService.VerifyAndApplyLock(c.Request.Context(), req.VerificationCode, req.Superuser)
	} else {
		lock, err = h.lockService.VerifyAndApplyUnlock(c.Request.Context(), req.VerificationCode, req.Superuser)
	}
	if err != nil {
		h.metrics.RecordLockOutcome(string(action), "error")
		h.respondError(c, err)
		return
	}

	h.metrics.RecordLockOutcome(string(action), "verified")
	c.JSON(http.StatusOK, dto.NewLockResponse(lock, false))
}

// Relock handles the POST /relock endpoint. The response is plain text and
// the status code tells automated callers whether retrying can help: 200 for
// success, 204 for a permanent rejection, 500 for a transient failure
func (h *LockHandler) Relock(c *gin.Context) {
	code := c.Query("oldUnlockVerificationCode")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing required parameter: oldUnlockVerificationCode")
		return
	}

	outcome := h.lockService.Relock(c.Request.Context(), code)
	switch outcome.Status {
	case lockUseCase.OutcomeSuccess:
		h.metrics.RecordLockOutcome("RELOCK", "success")
		c.String(http.StatusOK, outcome.Message)
	case lockUseCase.OutcomeRejected:
		// A rejection can never succeed on retry, so the task queue must not
		// requeue it; 204 acknowledges the task while the message stays in logs
		h.metrics.RecordLockOutcome("RELOCK", "rejected")
		c.Status(http.StatusNoContent)
	default:
		h.metrics.RecordLockOutcome("RELOCK", "failed")
		c.String(http.StatusInternalServerError, outcome.Message)
	}
}

// ListRegistrarLocks handles the GET /registrars/:registrarId/locks endpoint.
// The default view is the audit trail of every verified lock and unlock;
// ?locked=true narrows it to the registrar's currently locked domains
func (h *LockHandler) ListRegistrarLocks(c *gin.Context) {
	registrarID := c.Param("registrarId")

	var (
		locks []*entity.Lock
		err   error
	)
	if c.Query("locked") == "true" {
		locks, err = h.lockService.ListLockedDomains(c.Request.Context(), registrarID)
	} else {
		locks, err = h.lockService.ListVerifiedLocks(c.Request.Context(), registrarID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.LockListResponse{
		RegistrarID: registrarID,
		Locks:       make([]dto.LockResponse, 0, len(locks)),
	}
	for _, lock := range locks {
		resp.Locks = append(resp.Locks, dto.NewLockResponse(lock, false))
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps workflow errors to HTTP status codes
func (h *LockHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainerr.ErrDomainDeleted),
		errors.Is(err, domainerr.ErrResourceNotFound),
		errors.Is(err, domainerr.ErrUnknownVerificationCode):
		status = http.StatusNotFound
	case errors.Is(err, domainerr.ErrAlreadyLocked),
		errors.Is(err, domainerr.ErrAlreadyUnlocked),
		errors.Is(err, domainerr.ErrConcurrentModification),
		errors.Is(err, domainerr.ErrRelockAlreadySet),
		errors.Is(err, domainerr.ErrPendingDelete),
		errors.Is(err, domainerr.ErrPendingTransfer),
		errors.Is(err, domainerr.ErrRegistrarChanged):
		status = http.StatusConflict
	case errors.Is(err, domainerr.ErrVerificationCodeExpired):
		status = http.StatusGone
	case errors.Is(err, domainerr.ErrSuperuserOnly):
		status = http.StatusForbidden
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Lock request failed", map[string]any{
			"error": err.Error(),
		})
		message = "Internal server error"
	}

	c.JSON(status, dto.ErrorResponse{
		Code:    domainerr.ErrorCode(err),
		Message: message,
	})
}
