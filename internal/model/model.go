package model

import (
	"time"

	"tradelab/internal/types"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaperAccount is the per-user virtual trading ledger.
// Invariant: available_margin never goes negative; the store enforces it
// with a conditional update inside the open transaction.
type PaperAccount struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Balance         decimal.Decimal `json:"balance"`
	Equity          decimal.Decimal `json:"equity"`
	UsedMargin      decimal.Decimal `json:"used_margin"`
	AvailableMargin decimal.Decimal `json:"available_margin"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Position is one simulated trade. status == closed iff exit_price,
// exit_time and profit_loss are all set; there are no partial closes.
type Position struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	Symbol        string               `json:"symbol"`
	Side          types.PositionSide   `json:"side"`
	Status        types.PositionStatus `json:"status"`
	EntryPrice    decimal.Decimal      `json:"entry_price"`
	Amount        decimal.Decimal      `json:"amount"`
	Leverage      decimal.Decimal      `json:"leverage"`
	StopLoss      *decimal.Decimal     `json:"stop_loss,omitempty"`
	TakeProfit    *decimal.Decimal     `json:"take_profit,omitempty"`
	ExitPrice     *decimal.Decimal     `json:"exit_price,omitempty"`
	ExitTime      *time.Time           `json:"exit_time,omitempty"`
	ProfitLoss    *decimal.Decimal     `json:"profit_loss,omitempty"`
	UnrealizedPnL *decimal.Decimal     `json:"unrealized_pnl,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Trade is a backtesting journal entry, not a live position.
type Trade struct {
	ID           string               `json:"id"`
	UserID       string               `json:"user_id"`
	PairSymbol   string               `json:"pair_symbol"`
	StrategyType string               `json:"strategy_type"`
	Direction    types.TradeDirection `json:"direction"`
	EntryPrice   decimal.Decimal      `json:"entry_price"`
	ExitPrice    *decimal.Decimal     `json:"exit_price,omitempty"`
	Size         decimal.Decimal      `json:"size"`
	ProfitLoss   *decimal.Decimal     `json:"profit_loss,omitempty"`
	Outcome      *types.TradeOutcome  `json:"outcome,omitempty"`
	Session      string               `json:"session,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	EntryDate    time.Time            `json:"entry_date"`
	ExitDate     *time.Time           `json:"exit_date,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type TradingPair struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	BaseAsset   string          `json:"base_asset"`
	QuoteAsset  string          `json:"quote_asset"`
	DisplayName string          `json:"display_name"`
	Precision   int             `json:"precision"`
	SeedPrice   decimal.Decimal `json:"seed_price"`
	Active      bool            `json:"active"`
}

type StrategyType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type VerificationCode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	IsUsed    bool      `json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
