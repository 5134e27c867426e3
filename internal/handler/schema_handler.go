package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tenant_pos/internal/middleware"
	"github.com/GTDGit/tenant_pos/internal/service"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// SchemaHandler exposes the tenant's field schema.
type SchemaHandler struct {
	schemaService *service.SchemaService
}

// NewSchemaHandler constructs a SchemaHandler.
func NewSchemaHandler(schemaService *service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

type toggleActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type reorderRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

// ListFields handles GET /v1/fields
func (h *SchemaHandler) ListFields(c *gin.Context) {
	fields, err := h.schemaService.ListFields(c.Request.Context(), middleware.TenantFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Fields retrieved", fields)
}

// AddField handles POST /v1/fields
func (h *SchemaHandler) AddField(c *gin.Context) {
	var req service.AddFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	field, err := h.schemaService.AddField(c.Request.Context(), middleware.TenantFromContext(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Field created", field)
}

// UpdateField handles PATCH /v1/fields/:key
func (h *SchemaHandler) UpdateField(c *gin.Context) {
	var req service.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	field, err := h.schemaService.UpdateField(c.Request.Context(), middleware.TenantFromContext(c), c.Param("key"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Field updated", field)
}

// ToggleActive handles PUT /v1/fields/:key/active
func (h *SchemaHandler) ToggleActive(c *gin.Context) {
	var req toggleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	field, err := h.schemaService.ToggleActive(c.Request.Context(), middleware.TenantFromContext(c), c.Param("key"), *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Field updated", field)
}

// DeleteField handles DELETE /v1/fields/:key
func (h *SchemaHandler) DeleteField(c *gin.Context) {
	if err := h.schemaService.DeleteField(c.Request.Context(), middleware.TenantFromContext(c), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Field deleted", nil)
}

// ReorderFields handles PUT /v1/fields/order
func (h *SchemaHandler) ReorderFields(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	fields, err := h.schemaService.ReorderFields(c.Request.Context(), middleware.TenantFromContext(c), req.Keys)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Fields reordered", fields)
}
