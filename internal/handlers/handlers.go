package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"slotline/internal/apperrors"
	"slotline/internal/lifecycle"
	"slotline/internal/logger"
	"slotline/internal/models"
	"slotline/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// actor pulls the authenticated user placed by the identity middleware.
func actor(c *gin.Context) models.Actor {
	return models.Actor{
		ID:   c.GetString("user_id"),
		Role: lifecycle.Role(c.GetString("user_role")),
	}
}

// respondError maps the error taxonomy to HTTP statuses. Business
// rejections carry their message through; infrastructure failures are
// logged with full context and answered generically.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch appErr.Kind() {
	case apperrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": appErr.Message()})
	case apperrors.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": appErr.Message()})
	case apperrors.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message()})
	case apperrors.KindUnauthorized, apperrors.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": appErr.Message()})
	case apperrors.KindInvalidTransition:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": appErr.Message()})
	default:
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
