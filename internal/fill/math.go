package fill

import (
	"fmt"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

var _one = decimal.NewFromInt(1)

// Config bounds the fraction of the remaining quantity filled per pass.
// Both percents are fractions in [0, 1]; their order does not matter.
type Config struct {
	MinFillPercent decimal.Decimal
	MaxFillPercent decimal.Decimal
}

func (c Config) Validate() error {
	if err := checkPercent("min fill percent", c.MinFillPercent); err != nil {
		return err
	}
	return checkPercent("max fill percent", c.MaxFillPercent)
}

func checkPercent(name string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(_one) {
		return fmt.Errorf("%s must be within [0, 1], got %s", name, v)
	}
	return nil
}

// fractionRange is the fill fraction range in whole percent points.
type fractionRange struct {
	lo, hi int64
}

func newFractionRange(c Config) fractionRange {
	lo, hi := percentPoints(c.MinFillPercent), percentPoints(c.MaxFillPercent)
	if hi < lo {
		lo, hi = hi, lo
	}
	return fractionRange{lo: lo, hi: hi}
}

// percentPoints snaps a bound half-up to a whole percent point, so a bound of
// 0.255 fills 26%, just above the configured max.
func percentPoints(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// pick derives the fill fraction from the order id and how much of it is
// already filled, so the same order state always gets the same fraction.
func (r fractionRange) pick(orderID string, filled decimal.Decimal) decimal.Decimal {
	points := r.lo
	if span := r.hi - r.lo; span > 0 {
		h := xxhash.Sum64String(orderID + "|" + filled.String())
		points += int64(h % uint64(span+1))
	}
	return decimal.New(points, -2)
}

// Quantity is remaining*fraction cut to model.Scale digits. A result that
// rounds to zero or exceeds remaining fills everything that is left.
func Quantity(remaining, fraction decimal.Decimal) decimal.Decimal {
	q := remaining.Mul(fraction).Truncate(model.Scale)
	if !q.IsPositive() || q.GreaterThan(remaining) {
		return remaining
	}
	return q
}

// Marketable reports whether o can trade at the reference price. MARKET
// orders always can.
func Marketable(o model.Order, ref decimal.Decimal) bool {
	if o.Type == enum.OrderTypeMarket {
		return true
	}
	if !o.Price.Valid {
		return false
	}
	if o.Side == enum.SideBuy {
		return o.Price.Decimal.GreaterThanOrEqual(ref)
	}
	return o.Price.Decimal.LessThanOrEqual(ref)
}
