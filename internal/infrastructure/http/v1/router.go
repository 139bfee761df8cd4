// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"costbook/internal/domain/ledger"
	"costbook/internal/domain/reports"
	"costbook/internal/infrastructure/http/v1/handlers"
	"costbook/internal/infrastructure/http/v1/middleware"
	"costbook/internal/infrastructure/storage/postgres"
	"costbook/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	LedgerService  *ledger.Service
	ReportsService *reports.Service
	AuditService   *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		ledgerHandler := handlers.NewLedgerHandler(cfg.LedgerService)
		ledgerGroup := apiV1.Group("/ledger")
		{
			ledgerGroup.POST("/movements", ledgerHandler.RecordMovement)
			ledgerGroup.POST("/movements/preview", ledgerHandler.PreviewCorrections)
			ledgerGroup.GET("/movements/:movementId/corrections", ledgerHandler.DetectForMovement)

			ledgerGroup.GET("/accounts/:accountId/movements", ledgerHandler.ListMovements)
			ledgerGroup.GET("/accounts/:accountId/corrections", ledgerHandler.ListCorrections)
			ledgerGroup.GET("/accounts/:accountId/balance", ledgerHandler.GetBalance)
			ledgerGroup.POST("/accounts/:accountId/balance/rebuild", ledgerHandler.RebuildBalance)
		}

		reportsHandler := handlers.NewReportsHandler(cfg.ReportsService)
		reportsGroup := apiV1.Group("/reports")
		{
			reportsGroup.GET("/turnover", reportsHandler.GetTurnover)
			reportsGroup.GET("/accounts/:accountId/average-cost", reportsHandler.GetAverageCost)
		}

		auditHandler := handlers.NewAuditHandler(cfg.AuditService)
		apiV1.GET("/audit/:entityType/:entityId", auditHandler.EntityHistory)
	}

	return router
}
