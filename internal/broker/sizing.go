// Package broker holds what the executors share.
package broker

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrSizeTooSmall = errors.New("position size rounds to zero")

// Sizer decides how many units an entry buys or sells.
type Sizer struct {
	// MoneyManagement sizes each entry so that Capital*RiskPct/100 is spent.
	MoneyManagement bool
	Fixed           int
	Capital         float64
	RiskPct         float64
}

// Quantity returns the order size for an entry at price.
func (s Sizer) Quantity(price float64) (int, error) {
	if !s.MoneyManagement {
		if s.Fixed < 1 {
			return 1, nil
		}
		return s.Fixed, nil
	}
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %v", price)
	}

	budget := decimal.NewFromFloat(s.Capital).
		Mul(decimal.NewFromFloat(s.RiskPct)).
		Div(decimal.NewFromInt(100))
	qty := budget.Div(decimal.NewFromFloat(price)).Floor()
	if qty.LessThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("%w: budget %s at price %v", ErrSizeTooSmall, budget.StringFixed(2), price)
	}
	return int(qty.IntPart()), nil
}
