// Package api holds the gin handlers. Handlers stay thin: bind the request,
// call the service layer, map domain errors to HTTP status codes and manage
// the read caches. All business rules live in internal/service.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"roomy/internal/service"
)

// writeError maps a service error to a stable HTTP status and error kind.
// Internal errors are logged but never echoed to the caller.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "NOT_FOUND"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "kind": "UNAUTHORIZED"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "kind": "FORBIDDEN"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "INVALID_STATE"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "CONFLICT"})
	case errors.Is(err, service.ErrGatewayFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "transfer gateway unavailable", "kind": "GATEWAY_FAILURE"})
	default:
		logrus.WithField("error", err.Error()).Error("Internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "kind": "INTERNAL"})
	}
}

// callerID returns the authenticated user id set by the JWT middleware.
func callerID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}
