package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"authgate/internal/middleware"
	"authgate/internal/models"
	"authgate/internal/service"
)

type permissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

func toPermissionResponses(perms []models.Permission) []permissionResponse {
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{
			ID:          p.ID,
			Name:        p.Name,
			Resource:    p.Resource,
			Action:      p.Action,
			Description: p.Description,
		})
	}
	return out
}

func (h HandlerSet) ListPermissions(c *gin.Context) {
	perms, err := h.adminSvc.Permissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": toPermissionResponses(perms)})
}

func (h HandlerSet) ListAdmins(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	admins, total, err := h.adminSvc.List(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]adminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, toAdminResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{
		"admins": out,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

func (h HandlerSet) GetAdmin(c *gin.Context) {
	admin, err := h.adminSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminResponse(admin))
}

type createAdminRequest struct {
	Username      string   `json:"username" binding:"required,min=3,max=64"`
	Email         string   `json:"email" binding:"required,email"`
	Password      string   `json:"password" binding:"required,min=8"`
	IsSuperAdmin  bool     `json:"is_super_admin"`
	PermissionIDs []string `json:"permission_ids"`
}

func (h HandlerSet) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminSvc.Create(c.Request.Context(), service.CreateAdminInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		IsSuperAdmin:  req.IsSuperAdmin,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAdminResponse(admin))
}

type updateAdminRequest struct {
	Username     *string `json:"username" binding:"omitempty,min=3,max=64"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Password     *string `json:"password" binding:"omitempty,min=8"`
	IsActive     *bool   `json:"is_active"`
	IsSuperAdmin *bool   `json:"is_super_admin"`
}

func (h HandlerSet) UpdateAdmin(c *gin.Context) {
	actor, ok := middleware.CurrentAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req updateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminSvc.Update(c.Request.Context(), actor.ID, c.Param("id"), service.UpdateAdminInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		IsActive:     req.IsActive,
		IsSuperAdmin: req.IsSuperAdmin,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminResponse(admin))
}

type updatePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

func (h HandlerSet) UpdateAdminPermissions(c *gin.Context) {
	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminSvc.UpdatePermissions(c.Request.Context(), c.Param("id"), req.PermissionIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminResponse(admin))
}

func (h HandlerSet) DeleteAdmin(c *gin.Context) {
	actor, ok := middleware.CurrentAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.adminSvc.Delete(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin deleted"})
}
