package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/middleware"
	"github.com/fvorders/fvorders-api/services"
)

// respondError writes the error envelope shared by every endpoint
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondErrorDetails is respondError with a details object
func respondErrorDetails(c *gin.Context, status int, code, message string, details gin.H) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// respondInternal logs err and answers 500 without exposing it
func respondInternal(c *gin.Context, code, message string, err error) {
	logging.FromContext(c.Request.Context()).Error(message, "error", err)
	respondError(c, http.StatusInternalServerError, code, message)
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// adminContext returns the request context tagged with the authenticated
// admin, so emitted events and log lines carry who made the change.
func adminContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	email, err := middleware.GetAdminEmail(c)
	if err != nil {
		return ctx
	}
	ctx = services.WithActor(ctx, email)
	return logging.IntoContext(ctx, logging.FromContext(ctx).With("admin_email", email))
}
