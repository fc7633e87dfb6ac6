package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/internal/middleware"
	"authgate/internal/models"
)

type sendOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
	ChatID      int64  `json:"chat_id"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type userResponse struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	TelegramID  *int64     `json:"telegram_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		TelegramID:  u.TelegramID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (h HandlerSet) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.userAuth.SendOTP(c.Request.Context(), req.PhoneNumber, c.ClientIP(), req.ChatID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "verification code sent",
		"retry_after": int(result.RetryAfter.Seconds()),
	})
}

func (h HandlerSet) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.userAuth.VerifyOTP(c.Request.Context(), req.PhoneNumber, req.Code, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Registered {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success":       true,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"registered":    result.Registered,
		"user":          toUserResponse(result.User),
	})
}

func (h HandlerSet) RefreshTokens(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.userAuth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
