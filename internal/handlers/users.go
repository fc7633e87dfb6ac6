package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"authgate/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	input := service.ListUsersInput{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw, present := c.GetQuery("is_active"); present {
		if active, err := strconv.ParseBool(raw); err == nil {
			input.IsActive = &active
		}
	}

	users, total, err := h.userSvc.List(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	PhoneNumber *string `json:"phone_number" binding:"omitempty,e164"`
	TelegramID  *int64  `json:"telegram_id"`
	IsActive    *bool   `json:"is_active"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), c.Param("id"), service.UpdateUserInput{
		PhoneNumber: req.PhoneNumber,
		TelegramID:  req.TelegramID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) DeactivateUser(c *gin.Context) {
	user, err := h.userSvc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) ActivateUser(c *gin.Context) {
	user, err := h.userSvc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.userSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
