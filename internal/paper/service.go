package paper

import (
	"context"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/margin"
	"tradelab/internal/model"
	"tradelab/internal/types"

	"github.com/shopspring/decimal"
)

// QuoteSource returns the latest simulated bid/ask for a symbol.
type QuoteSource interface {
	Quote(symbol string) (bid, ask decimal.Decimal, ok bool)
}

// PairSource resolves tradable symbols.
type PairSource interface {
	GetPairBySymbol(ctx context.Context, symbol string) (model.TradingPair, error)
}

type Service struct {
	store           Store
	quotes          QuoteSource
	pairs           PairSource
	startingBalance decimal.Decimal
}

func NewService(store Store, quotes QuoteSource, pairs PairSource, startingBalance decimal.Decimal) *Service {
	return &Service{store: store, quotes: quotes, pairs: pairs, startingBalance: startingBalance}
}

type OpenRequest struct {
	Symbol     string
	Side       types.PositionSide
	EntryPrice decimal.Decimal
	Amount     decimal.Decimal
	Leverage   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// AccountView is the ledger plus mark-to-market figures derived from open
// positions at the current quotes. Stored equity only moves on realized PnL.
type AccountView struct {
	model.PaperAccount
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	MarkEquity    decimal.Decimal `json:"mark_equity"`
	OpenPositions int             `json:"open_positions"`
}

// Account lazily creates the ledger on first access, matching registration
// behaviour for users that predate the paper-trading feature.
func (s *Service) Account(ctx context.Context, userID string) (AccountView, error) {
	acc, err := s.store.EnsureAccount(ctx, userID, s.startingBalance)
	if err != nil {
		return AccountView{}, err
	}
	open, err := s.store.ListPositions(ctx, userID, types.PositionStatusActive)
	if err != nil {
		return AccountView{}, err
	}
	unrealized := decimal.Zero
	for i := range open {
		if pnl, ok := s.markPnL(open[i]); ok {
			unrealized = unrealized.Add(pnl)
		}
	}
	return AccountView{
		PaperAccount:  acc,
		UnrealizedPnL: unrealized,
		MarkEquity:    acc.Balance.Add(unrealized),
		OpenPositions: len(open),
	}, nil
}

func (s *Service) OpenPosition(ctx context.Context, userID string, req OpenRequest) (model.Position, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return model.Position{}, apperr.Validation("amount must be positive")
	}
	if req.Leverage.LessThan(decimal.NewFromInt(1)) {
		return model.Position{}, apperr.Validation("leverage must be at least 1")
	}
	if req.EntryPrice.LessThanOrEqual(decimal.Zero) {
		return model.Position{}, apperr.Validation("entry price must be positive")
	}
	if !req.Side.Valid() {
		return model.Position{}, apperr.Validation("side must be long or short")
	}
	if req.StopLoss != nil && req.StopLoss.LessThanOrEqual(decimal.Zero) {
		return model.Position{}, apperr.Validation("stop loss must be positive")
	}
	if req.TakeProfit != nil && req.TakeProfit.LessThanOrEqual(decimal.Zero) {
		return model.Position{}, apperr.Validation("take profit must be positive")
	}
	if s.pairs != nil {
		pair, err := s.pairs.GetPairBySymbol(ctx, req.Symbol)
		if err != nil {
			return model.Position{}, apperr.Validation("unknown symbol %s", req.Symbol)
		}
		if !pair.Active {
			return model.Position{}, apperr.Validation("pair %s is not active", req.Symbol)
		}
	}

	riskCfg, err := s.store.RiskConfig(ctx)
	if err != nil {
		return model.Position{}, err
	}
	if req.Leverage.GreaterThan(riskCfg.MaxLeverage) {
		return model.Position{}, apperr.Validation("leverage above maximum %s", riskCfg.MaxLeverage.String())
	}
	openCount, err := s.store.CountOpen(ctx, userID)
	if err != nil {
		return model.Position{}, err
	}
	if openCount >= riskCfg.MaxOpenPositions {
		return model.Position{}, apperr.Validation("max open positions reached (%d)", riskCfg.MaxOpenPositions)
	}

	required := margin.Required(req.Amount, req.Leverage)
	pos := model.Position{
		UserID:     userID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		Amount:     req.Amount,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}
	return s.store.OpenPosition(ctx, pos, required)
}

// ClosePosition closes at the given exit price, or at the live quote when the
// caller omits one. Long positions close at bid, shorts at ask.
func (s *Service) ClosePosition(ctx context.Context, userID, positionID string, exitPrice *decimal.Decimal) (model.Position, error) {
	pos, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return model.Position{}, err
	}
	if pos.UserID != userID {
		return model.Position{}, apperr.ErrAccessDenied
	}
	if pos.Status == types.PositionStatusClosed {
		return model.Position{}, apperr.ErrAlreadyClosed
	}

	var px decimal.Decimal
	if exitPrice != nil {
		px = *exitPrice
	} else {
		bid, ask, ok := s.quoteFor(pos.Symbol)
		if !ok {
			return model.Position{}, apperr.Validation("no market quote for %s; provide exit_price", pos.Symbol)
		}
		px = bid
		if pos.Side == types.PositionSideShort {
			px = ask
		}
	}
	if px.LessThanOrEqual(decimal.Zero) {
		return model.Position{}, apperr.Validation("exit price must be positive")
	}

	pnl := margin.PnL(pos.Side, pos.EntryPrice, px, pos.Amount, pos.Leverage)
	required := margin.Required(pos.Amount, pos.Leverage)
	closed, err := s.store.ClosePosition(ctx, positionID, px, time.Now().UTC(), pnl, required)
	if err != nil {
		return model.Position{}, err
	}
	return closed, nil
}

func (s *Service) ListPositions(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error) {
	if status != "" && status != types.PositionStatusActive && status != types.PositionStatusClosed {
		return nil, apperr.Validation("status must be active or closed")
	}
	positions, err := s.store.ListPositions(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Status != types.PositionStatusActive {
			continue
		}
		if pnl, ok := s.markPnL(positions[i]); ok {
			positions[i].UnrealizedPnL = &pnl
		}
	}
	return positions, nil
}

// EnsureAccount is called at registration so new users start funded.
func (s *Service) EnsureAccount(ctx context.Context, userID string) error {
	_, err := s.store.EnsureAccount(ctx, userID, s.startingBalance)
	return err
}

func (s *Service) markPnL(pos model.Position) (decimal.Decimal, bool) {
	bid, ask, ok := s.quoteFor(pos.Symbol)
	if !ok {
		return decimal.Zero, false
	}
	mark := bid
	if pos.Side == types.PositionSideShort {
		mark = ask
	}
	return margin.PnL(pos.Side, pos.EntryPrice, mark, pos.Amount, pos.Leverage), true
}

func (s *Service) quoteFor(symbol string) (decimal.Decimal, decimal.Decimal, bool) {
	if s.quotes == nil {
		return decimal.Zero, decimal.Zero, false
	}
	return s.quotes.Quote(symbol)
}
