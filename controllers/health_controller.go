package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController answers liveness and database checks
type HealthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Root handles GET /
func (h *HealthController) Root(c *gin.Context) {
	c.String(http.StatusOK, "Backend is working!")
}

// HealthCheck handles GET /api/health
func (h *HealthController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FV Orders API is running",
	})
}

// DatabaseStatus handles GET /api/database/status - checks connectivity and lists tables
func (h *HealthController) DatabaseStatus(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		respondInternal(c, "DATABASE_ERROR", "Failed to get database instance", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		respondInternal(c, "DATABASE_CONNECTION_ERROR", "Database connection failed", err)
		return
	}

	tables, err := h.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		respondInternal(c, "DATABASE_QUERY_ERROR", "Failed to query tables", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
