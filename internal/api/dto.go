package api

import (
	"time"

	"orderexec/internal/model"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the body of POST /orders. Decimals may be sent as
// JSON numbers or strings.
type CreateOrderRequest struct {
	Symbol    string              `json:"symbol"`
	Side      string              `json:"side"`
	OrderType string              `json:"orderType"`
	Quantity  decimal.NullDecimal `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
}

// OrderResponse renders decimals as plain strings.
type OrderResponse struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	OrderType      string    `json:"orderType"`
	Quantity       string    `json:"quantity"`
	FilledQuantity string    `json:"filledQuantity"`
	Price          *string   `json:"price"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ExecutionResponse struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	Symbol     string    `json:"symbol"`
	Quantity   string    `json:"quantity"`
	Price      string    `json:"price"`
	ExecutedAt time.Time `json:"executedAt"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func newOrderResponse(o model.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		Symbol:         o.Symbol,
		Side:           o.Side.String(),
		OrderType:      o.Type.String(),
		Quantity:       o.Quantity.String(),
		FilledQuantity: o.FilledQuantity.String(),
		Status:         o.Status.String(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Price.Valid {
		p := o.Price.Decimal.String()
		resp.Price = &p
	}
	return resp
}

func newOrderResponses(orders []model.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

func newExecutionResponses(execs []model.Execution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(execs))
	for _, e := range execs {
		out = append(out, ExecutionResponse{
			ID:         e.ID,
			OrderID:    e.OrderID,
			Symbol:     e.Symbol,
			Quantity:   e.Quantity.String(),
			Price:      e.Price.String(),
			ExecutedAt: e.ExecutedAt,
		})
	}
	return out
}
