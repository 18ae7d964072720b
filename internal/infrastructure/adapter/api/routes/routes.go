package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/handler"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	lockHandler *handler.LockHandler,
	resaveHandler *handler.ResaveHandler,
) {
	// Registry lock workflow
	lockRoutes := router.Group("/locks")
	{
		// POST /locks
		lockRoutes.POST("", lockHandler.RequestLock)

		// POST /locks/verify
		lockRoutes.POST("/verify", lockHandler.VerifyLock)
	}

	unlockRoutes := router.Group("/unlocks")
	{
		// POST /unlocks
		unlockRoutes.POST("", lockHandler.RequestUnlock)

		// POST /unlocks/verify
		unlockRoutes.POST("/verify", lockHandler.VerifyUnlock)
	}

	// POST /relock?oldUnlockVerificationCode=...
	router.POST("/relock", lockHandler.Relock)

	// GET /registrars/:registrarId/locks
	router.GET("/registrars/:registrarId/locks", lockHandler.ListRegistrarLocks)

	// POST /resave
	router.POST("/resave", resaveHandler.Run)

	// Operational endpoints
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
}
