package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authgate/internal/service"
)

// respondError maps service errors onto HTTP status codes. Anything
// unrecognized is logged and reported as an opaque 500 so internal
// details never reach the wire.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var rateLimited *service.RateLimitedError
	if errors.As(err, &rateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       rateLimited.Error(),
			"retry_after": int(rateLimited.RetryAfter.Seconds()),
		})
		return
	}

	var wrongCode *service.WrongCodeError
	if errors.As(err, &wrongCode) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         wrongCode.Error(),
			"attempts_left": wrongCode.Remaining,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInactive),
		errors.Is(err, service.ErrSelfAction),
		errors.Is(err, service.ErrSuperAdminProtected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOTPNotFound),
		errors.Is(err, service.ErrOTPExhausted),
		errors.Is(err, service.ErrPermissionUnknown):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrPhoneTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
