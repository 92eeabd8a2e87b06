package fill

import (
	"fmt"
	"testing"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuantity(t *testing.T) {
	assert.True(t, Quantity(d("10"), d("0.25")).Equal(d("2.5")))
	assert.True(t, Quantity(d("1"), d("0.333333333")).Equal(d("0.333333")))
	// rounds to zero, fill everything left
	assert.True(t, Quantity(d("0.000001"), d("0.25")).Equal(d("0.000001")))
	assert.True(t, Quantity(d("3"), d("0")).Equal(d("3")))
	assert.True(t, Quantity(d("3"), d("1")).Equal(d("3")))
}

func TestFractionRange(t *testing.T) {
	r := newFractionRange(Config{MinFillPercent: d("0.50"), MaxFillPercent: d("0.25")})
	assert.Equal(t, fractionRange{lo: 25, hi: 50}, r)

	// bounds snap half-up to whole points, even past the configured max
	snapped := newFractionRange(Config{MinFillPercent: d("0.255"), MaxFillPercent: d("0.255")})
	assert.Equal(t, fractionRange{lo: 26, hi: 26}, snapped)
	assert.True(t, snapped.pick("any", decimal.Zero).Equal(d("0.26")))
	assert.Equal(t, fractionRange{lo: 25, hi: 25}, newFractionRange(Config{MinFillPercent: d("0.2549"), MaxFillPercent: d("0.2549")}))

	for i := range 200 {
		id := fmt.Sprintf("order-%d", i)
		f := r.pick(id, decimal.Zero)
		assert.True(t, f.GreaterThanOrEqual(d("0.25")) && f.LessThanOrEqual(d("0.5")), "fraction %s", f)
		assert.True(t, f.Equal(r.pick(id, d("0.0"))), "same state, same fraction")
	}

	fixed := fractionRange{lo: 25, hi: 25}
	assert.True(t, fixed.pick("any", d("3")).Equal(d("0.25")))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{MinFillPercent: d("0"), MaxFillPercent: d("1")}.Validate())
	assert.Error(t, Config{MinFillPercent: d("-0.1"), MaxFillPercent: d("1")}.Validate())
	assert.Error(t, Config{MinFillPercent: d("0.1"), MaxFillPercent: d("1.5")}.Validate())
}

func TestMarketable(t *testing.T) {
	limit := func(side enum.Side, price string) model.Order {
		return model.Order{Side: side, Type: enum.OrderTypeLimit, Price: decimal.NewNullDecimal(d(price))}
	}
	ref := d("100")

	assert.True(t, Marketable(limit(enum.SideBuy, "100"), ref))
	assert.True(t, Marketable(limit(enum.SideBuy, "150"), ref))
	assert.False(t, Marketable(limit(enum.SideBuy, "50"), ref))

	assert.True(t, Marketable(limit(enum.SideSell, "100"), ref))
	assert.True(t, Marketable(limit(enum.SideSell, "80"), ref))
	assert.False(t, Marketable(limit(enum.SideSell, "100.01"), ref))

	assert.True(t, Marketable(model.Order{Side: enum.SideSell, Type: enum.OrderTypeMarket}, ref))
	assert.False(t, Marketable(model.Order{Side: enum.SideBuy, Type: enum.OrderTypeLimit}, ref))
}

func TestSymbolLocks(t *testing.T) {
	var l symbolLocks
	assert.Same(t, l.get("AAPL"), l.get("AAPL"))
	assert.NotSame(t, l.get("AAPL"), l.get("MSFT"))
}
