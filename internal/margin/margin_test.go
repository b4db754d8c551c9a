package margin

import (
	"testing"

	"tradelab/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		leverage string
		want     string
	}{
		{"no leverage", "100", "1", "100"},
		{"leveraged", "100", "10", "1000"},
		{"fractional amount", "0.5", "20", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Required(d(tt.amount), d(tt.leverage))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPnL(t *testing.T) {
	tests := []struct {
		name     string
		side     types.PositionSide
		entry    string
		mark     string
		amount   string
		leverage string
		want     string
	}{
		{"long gains on rise", types.PositionSideLong, "100", "110", "10", "1", "100"},
		{"short loses on rise", types.PositionSideShort, "100", "110", "10", "1", "-100"},
		{"long loses on fall", types.PositionSideLong, "100", "90", "10", "1", "-100"},
		{"short gains on fall", types.PositionSideShort, "100", "90", "10", "1", "100"},
		{"flat is zero", types.PositionSideLong, "100", "100", "10", "5", "0"},
		{"leverage scales", types.PositionSideLong, "100", "101", "10", "10", "100"},
		{"fractional prices", types.PositionSideShort, "1.0850", "1.0800", "1000", "1", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PnL(tt.side, d(tt.entry), d(tt.mark), d(tt.amount), d(tt.leverage))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPnLGuards(t *testing.T) {
	assert.True(t, PnL(types.PositionSideLong, d("0"), d("100"), d("10"), d("1")).IsZero())
	assert.True(t, PnL(types.PositionSideLong, d("100"), d("-1"), d("10"), d("1")).IsZero())
	assert.True(t, PnL("sideways", d("100"), d("110"), d("10"), d("1")).IsZero())
}
