package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/internal/middleware"
	"authgate/internal/models"
)

// Username doubles as the email field: lookup is by username OR email.
type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsActive     bool      `json:"is_active"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAdminResponse(a models.Admin) adminResponse {
	return adminResponse{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		IsSuperAdmin: a.IsSuperAdmin,
		IsActive:     a.IsActive,
		Permissions:  a.PermissionNames(),
		CreatedAt:    a.CreatedAt,
	}
}

func (h HandlerSet) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.adminAuth.Login(
		c.Request.Context(),
		req.Username,
		req.Password,
		c.ClientIP(),
		c.GetHeader("User-Agent"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// The session token travels only in the cookie; the CSRF token is
	// handed to the client in the body so scripts can echo it back in
	// the X-CSRF-Token header.
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		result.SessionToken,
		int(h.cfg.Security.AdminSessionTTL.Seconds()),
		h.cfg.Security.CookiePath,
		"",
		h.cfg.IsProduction(),
		true,
	)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"admin":      toAdminResponse(result.Admin),
		"csrf_token": result.CSRFToken,
	})
}

func (h HandlerSet) AdminLogout(c *gin.Context) {
	token, err := c.Cookie(h.cfg.Security.CookieName)
	if err == nil && token != "" {
		if err := h.adminAuth.Logout(c.Request.Context(), token); err != nil {
			h.respondError(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Security.CookieName, "", -1, h.cfg.Security.CookiePath, "", h.cfg.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

func (h HandlerSet) AdminMe(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, toAdminResponse(admin))
}
