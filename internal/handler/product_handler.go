package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tenant_pos/internal/middleware"
	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/service"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// ProductHandler handles catalog HTTP endpoints.
type ProductHandler struct {
	catalogService *service.CatalogService
	schemaService  *service.SchemaService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(catalogService *service.CatalogService, schemaService *service.SchemaService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService, schemaService: schemaService}
}

// ProductListResponse carries products together with the rendered table.
type ProductListResponse struct {
	Products      []models.Product         `json:"products"`
	VisibleFields []models.FieldDefinition `json:"visibleFields"`
	Rows          []models.Attributes      `json:"rows"`
}

type adjustStockRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// ListProducts handles GET /v1/products?search=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	tc := middleware.TenantFromContext(c)

	products, err := h.catalogService.ListProducts(ctx, tc, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	defs, err := h.schemaService.ListFields(ctx, tc)
	if err != nil {
		respondError(c, err)
		return
	}

	visible := service.VisibleFields(products, defs)
	rows := make([]models.Attributes, 0, len(products))
	for _, p := range products {
		rows = append(rows, service.Row(p, visible))
	}
	if products == nil {
		products = []models.Product{}
	}

	utils.Success(c, 200, "Products retrieved", ProductListResponse{
		Products:      products,
		VisibleFields: visible,
		Rows:          rows,
	})
}

// VisibleFields handles GET /v1/products/visible-fields
func (h *ProductHandler) VisibleFields(c *gin.Context) {
	ctx := c.Request.Context()
	tc := middleware.TenantFromContext(c)

	products, err := h.catalogService.ListProducts(ctx, tc, "")
	if err != nil {
		respondError(c, err)
		return
	}
	defs, err := h.schemaService.ListFields(ctx, tc)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Visible fields retrieved", service.VisibleFields(products, defs))
}

// GetProduct handles GET /v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.catalogService.GetProduct(c.Request.Context(), middleware.TenantFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", p)
}

// CreateProduct handles POST /v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var form service.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		bindError(c, err)
		return
	}

	p, err := h.catalogService.CreateProduct(c.Request.Context(), middleware.TenantFromContext(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Product created", p)
}

// UpdateProduct handles PUT /v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var form service.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		bindError(c, err)
		return
	}

	p, err := h.catalogService.UpdateProduct(c.Request.Context(), middleware.TenantFromContext(c), c.Param("id"), form)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product updated", p)
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), middleware.TenantFromContext(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product deleted", nil)
}

// AdjustStock handles POST /v1/products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	mv, err := h.catalogService.AdjustStock(c.Request.Context(), middleware.TenantFromContext(c), c.Param("id"), *req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Stock adjusted", mv)
}
