package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
	"github.com/regsuite/registry-core/internal/domain/usecase/resave"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/dto"
)

// ResaveHandler handles resave sweep HTTP requests
type ResaveHandler struct {
	store   persistence.Store
	clock   coreport.Clock
	logger  coreport.Logger
	metrics coreport.Metrics
	cfg     resave.Config
}

// NewResaveHandler creates a new resave handler instance
func NewResaveHandler(store persistence.Store, clock coreport.Clock, logger coreport.Logger, metrics coreport.Metrics, cfg resave.Config) *ResaveHandler {
	return &ResaveHandler{
		store:   store,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Run handles the POST /resave endpoint. Each call builds a fresh pipeline
// because the run configuration (fast mode, pinned run time) is per sweep
func (h *ResaveHandler) Run(c *gin.Context) {
	var req dto.ResaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
				Message: "Invalid request format: " + err.Error(),
			})
			return
		}
	}

	cfg := h.cfg
	// The configured fast default stays in force unless the request says
	// otherwise
	if req.Fast != nil {
		cfg.Fast = *req.Fast
	}
	cfg.RunTime = req.RunTime

	pipeline := resave.NewPipeline(h.store, h.clock, h.logger, h.metrics, cfg)
	result, err := pipeline.Run(c.Request.Context())
	if result == nil || (err != nil && !errors.Is(err, c.Request.Context().Err())) {
		h.logger.Error("Resave sweep failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: "Internal server error",
		})
		return
	}

	status := http.StatusOK
	if result != nil && len(result.FailedShards()) > 0 {
		// Partial completion; the caller reruns with the same runTime to
		// finish only the failed shards
		status = http.StatusAccepted
	}

	c.JSON(status, dto.ResaveResponse{
		RunTime:      result.RunTime,
		Processed:    result.Processed,
		Resaved:      result.Resaved,
		Unchanged:    result.Unchanged,
		FailedShards: result.FailedShards(),
	})
}
