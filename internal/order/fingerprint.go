package order

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"orderexec/internal/model"

	"github.com/shopspring/decimal"
)

const _nullField = "<null>"

// Fingerprint hashes the semantic fields of req so that a reused idempotency
// key can be checked against the request it first carried. Equivalent
// requests ("aapl" and "AAPL", "10" and "10.0") hash the same.
func Fingerprint(req model.OrderRequest) string {
	var b strings.Builder

	symbol, ok := model.NormalizeSymbol(req.Symbol)
	writeField(&b, symbol, ok)
	writeField(&b, req.Side.String(), req.Side.IsAvailable())
	qty, ok := canonicalNumber(req.Quantity)
	writeField(&b, qty, ok)
	price, ok := canonicalNumber(req.Price)
	writeField(&b, price, ok)
	writeField(&b, req.Type.OrDefault().String(), true)

	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

func writeField(b *strings.Builder, value string, present bool) {
	if !present {
		value = _nullField
	}
	b.WriteString(value)
	b.WriteByte('|')
}

// canonicalNumber renders d in plain notation without trailing zeros.
func canonicalNumber(d decimal.NullDecimal) (string, bool) {
	if !d.Valid {
		return "", false
	}
	return d.Decimal.String(), true
}
