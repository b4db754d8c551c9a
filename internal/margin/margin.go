// Package margin holds the pure arithmetic for the paper-trading ledger.
// All functions are side-effect free; callers validate amount > 0 and
// leverage >= 1 before calling.
package margin

import (
	"tradelab/internal/types"

	"github.com/shopspring/decimal"
)

// Required computes the margin reserved for a position.
func Required(amount, leverage decimal.Decimal) decimal.Decimal {
	return amount.Mul(leverage)
}

// PnL computes profit or loss of a position marked at price. For a long the
// position gains as price rises above entry; a short mirrors it. The same
// formula serves unrealized (mark = current quote) and realized
// (mark = exit price) PnL.
func PnL(side types.PositionSide, entry, mark, amount, leverage decimal.Decimal) decimal.Decimal {
	if entry.LessThanOrEqual(decimal.Zero) || mark.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	exposure := amount.Mul(leverage)
	switch side {
	case types.PositionSideLong:
		return mark.Sub(entry).Mul(exposure)
	case types.PositionSideShort:
		return entry.Sub(mark).Mul(exposure)
	default:
		return decimal.Zero
	}
}
