package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the order API. Cross-origin requests are answered only
// when allowedOrigins is set.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	orders := r.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
	orders.GET("/:id/executions", h.ListExecutions)

	r.GET("/metrics", h.Metrics)
	r.GET("/healthz", h.Health)

	if len(allowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", IdempotencyKeyHeader},
		ExposedHeaders: []string{IdempotentReplayedHeader},
	})
	return c.Handler(r)
}
