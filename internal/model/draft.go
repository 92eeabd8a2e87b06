package model

import (
	"strings"

	"orderexec/internal/model/enum"
	"orderexec/pkg/exception"

	"github.com/shopspring/decimal"
)

// OrderRequest is an order as submitted, before validation.
type OrderRequest struct {
	Symbol   string
	Side     enum.Side
	Type     enum.OrderType
	Quantity decimal.NullDecimal
	Price    decimal.NullDecimal
}

// Draft is a validated and normalized OrderRequest.
type Draft struct {
	Symbol   string
	Side     enum.Side
	Type     enum.OrderType
	Quantity decimal.Decimal
	Price    decimal.NullDecimal
}

// Rules are the configurable parts of order validation.
type Rules struct {
	supported    map[string]struct{}
	maxOrderSize decimal.NullDecimal
}

// NewRules normalizes the allow-list. An empty list allows every symbol and
// an invalid maxOrderSize means no size limit.
func NewRules(supportedSymbols []string, maxOrderSize decimal.NullDecimal) Rules {
	r := Rules{maxOrderSize: maxOrderSize}
	for _, s := range supportedSymbols {
		if n, ok := NormalizeSymbol(s); ok {
			if r.supported == nil {
				r.supported = make(map[string]struct{}, len(supportedSymbols))
			}
			r.supported[n] = struct{}{}
		}
	}
	return r
}

// NormalizeSymbol trims and upper-cases a symbol; blank input returns false.
func NormalizeSymbol(symbol string) (string, bool) {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return "", false
	}
	return strings.ToUpper(s), true
}

// Validate checks req and returns its normalized form or a *exception.ValidationError.
func (r Rules) Validate(req OrderRequest) (Draft, error) {
	typ := req.Type.OrDefault()

	symbol, ok := NormalizeSymbol(req.Symbol)
	if !ok {
		return Draft{}, exception.Validation(exception.ErrSymbolRequired, "")
	}
	if len(r.supported) != 0 {
		if _, ok := r.supported[symbol]; !ok {
			return Draft{}, exception.Validation(exception.ErrUnsupportedSymbol, symbol)
		}
	}

	if !req.Side.IsAvailable() {
		return Draft{}, exception.Validation(exception.ErrMissingSide, "")
	}

	if !req.Quantity.Valid || !req.Quantity.Decimal.IsPositive() {
		return Draft{}, exception.Validation(exception.ErrInvalidQuantity, "")
	}
	if !fitsScale(req.Quantity.Decimal) {
		return Draft{}, exception.Validation(exception.ErrTooPrecise, "quantity")
	}
	if r.maxOrderSize.Valid && req.Quantity.Decimal.GreaterThan(r.maxOrderSize.Decimal) {
		return Draft{}, exception.Validation(exception.ErrOrderTooLarge, r.maxOrderSize.Decimal.String())
	}

	switch typ {
	case enum.OrderTypeLimit:
		if !req.Price.Valid || !req.Price.Decimal.IsPositive() {
			return Draft{}, exception.Validation(exception.ErrMissingLimitPrice, "")
		}
		if !fitsScale(req.Price.Decimal) {
			return Draft{}, exception.Validation(exception.ErrTooPrecise, "price")
		}
	default:
		if req.Price.Valid {
			return Draft{}, exception.Validation(exception.ErrUnexpectedPrice, "")
		}
	}

	return Draft{
		Symbol:   symbol,
		Side:     req.Side,
		Type:     typ,
		Quantity: req.Quantity.Decimal,
		Price:    req.Price,
	}, nil
}

// fitsScale reports whether d is representable in the numeric(18,6) money
// columns without rounding. Trailing zeros past the scale are fine.
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}
