package api

import (
	"context"
	"net/http"
	"strings"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/internal/obs"
	"orderexec/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// OrderService is the order use case as seen by the HTTP layer.
type OrderService interface {
	CreateOrder(ctx context.Context, key string, req model.OrderRequest) (order.Created, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrders(ctx context.Context, q order.ListQuery) ([]model.Order, error)
	CancelOrder(ctx context.Context, id string) (model.Order, error)
	ListExecutions(ctx context.Context, orderID string) ([]model.Execution, error)
}

type Handler struct {
	orders  OrderService
	metrics *obs.Metrics
}

func NewHandler(orders OrderService, metrics *obs.Metrics) *Handler {
	return &Handler{orders: orders, metrics: metrics}
}

// CreateOrder handles POST /orders and answers 201. A request replayed under
// the same Idempotency-Key gets the first order back, marked with an
// Idempotent-Replayed: true header.
func (h *Handler) CreateOrder(c *gin.Context) {
	var body CreateOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, newErrorResponse("malformed request body"))
		return
	}

	req := model.OrderRequest{
		Symbol:   body.Symbol,
		Quantity: body.Quantity,
		Price:    body.Price,
	}
	if body.Side != "" {
		side, ok := enum.ParseSide(body.Side)
		if !ok {
			c.JSON(http.StatusBadRequest, invalidParam("side", body.Side))
			return
		}
		req.Side = side
	}
	if body.OrderType != "" {
		typ, ok := enum.ParseOrderType(body.OrderType)
		if !ok {
			c.JSON(http.StatusBadRequest, invalidParam("orderType", body.OrderType))
			return
		}
		req.Type = typ
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	created, err := h.orders.CreateOrder(c.Request.Context(), key, req)
	if err != nil {
		h.abort(c, err)
		return
	}

	if created.Replayed {
		c.Header(IdempotentReplayedHeader, "true")
	}
	c.JSON(http.StatusCreated, newOrderResponse(created.Order))
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

// ListOrders handles GET /orders?symbol=&status=.
func (h *Handler) ListOrders(c *gin.Context) {
	var q order.ListQuery
	if symbol, ok := c.GetQuery("symbol"); ok {
		q.Symbol = &symbol
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := enum.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, invalidParam("status", raw))
			return
		}
		q.Status = status
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponses(orders))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.CancelOrder(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *Handler) ListExecutions(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	execs, err := h.orders.ListExecutions(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newExecutionResponses(execs))
}

func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) abort(c *gin.Context, err error) {
	status, resp := MapErrorToHTTP(err)
	c.JSON(status, resp)
}

// orderID reads the :id path parameter and answers 400 itself when it is not
// a UUID.
func orderID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, invalidParam("id", raw))
		return "", false
	}
	return id.String(), true
}
