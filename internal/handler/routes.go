package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GTDGit/tenant_pos/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *HealthHandler
	Schema  *SchemaHandler
	Product *ProductHandler
	Order   *OrderHandler
	SSE     *SSEHandler
}

// SetupRoutes registers all routes. Everything under /v1 except health
// requires a tenant token.
func SetupRoutes(router *gin.Engine, handlers *Handlers, tenantMiddleware *middleware.TenantMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(tenantMiddleware.Handle())
	{
		// Field schema
		v1.GET("/fields", handlers.Schema.ListFields)
		v1.POST("/fields", handlers.Schema.AddField)
		v1.PUT("/fields/order", handlers.Schema.ReorderFields)
		v1.PATCH("/fields/:key", handlers.Schema.UpdateField)
		v1.DELETE("/fields/:key", handlers.Schema.DeleteField)
		v1.PUT("/fields/:key/active", handlers.Schema.ToggleActive)

		// Catalog
		v1.GET("/products", handlers.Product.ListProducts)
		v1.GET("/products/visible-fields", handlers.Product.VisibleFields)
		v1.POST("/products", handlers.Product.CreateProduct)
		v1.GET("/products/:id", handlers.Product.GetProduct)
		v1.PUT("/products/:id", handlers.Product.UpdateProduct)
		v1.DELETE("/products/:id", handlers.Product.DeleteProduct)
		v1.POST("/products/:id/stock", handlers.Product.AdjustStock)

		// Orders
		v1.POST("/orders/sale", handlers.Order.CreateSale)
		v1.POST("/orders/return", handlers.Order.CreateReturn)
		v1.GET("/orders", handlers.Order.ListOrders)
		v1.GET("/orders/:id", handlers.Order.GetOrder)

		v1.GET("/events", handlers.SSE.Stream)
	}
}
