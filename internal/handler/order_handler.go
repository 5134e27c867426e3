package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tenant_pos/internal/middleware"
	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/service"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// OrderHandler handles sale and return checkout endpoints.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateSale handles POST /v1/orders/sale
func (h *OrderHandler) CreateSale(c *gin.Context) {
	spec, ok := bindCart(c)
	if !ok {
		return
	}

	order, err := h.orderService.CreateSale(c.Request.Context(), middleware.TenantFromContext(c), spec)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Sale committed", order)
}

// CreateReturn handles POST /v1/orders/return
func (h *OrderHandler) CreateReturn(c *gin.Context) {
	spec, ok := bindCart(c)
	if !ok {
		return
	}

	order, err := h.orderService.CreateReturn(c.Request.Context(), middleware.TenantFromContext(c), spec)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Return committed", order)
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.TenantFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Order retrieved", order)
}

// ListOrders handles GET /v1/orders?page=&limit=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, limit := 1, 50
	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			page = p
		}
	}
	if v := c.Query("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), middleware.TenantFromContext(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	utils.SuccessWithPagination(c, 200, "Orders retrieved", orders, page, limit, total)
}

// bindCart decodes the cart. The Idempotency-Key header, when present,
// overrides requestKey in the body.
func bindCart(c *gin.Context) (*models.CartSpec, bool) {
	var spec models.CartSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		bindError(c, err)
		return nil, false
	}
	if key := strings.TrimSpace(c.GetHeader("Idempotency-Key")); key != "" {
		spec.RequestKey = key
	}
	return &spec, true
}
