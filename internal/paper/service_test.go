package paper

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"
	"tradelab/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the PGStore contract: conditional margin updates under a
// single lock, so the concurrency test exercises the same guarantee the
// database transaction provides.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]model.PaperAccount
	positions map[string]model.Position
	risk      RiskConfig
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]model.PaperAccount),
		positions: make(map[string]model.Position),
		risk:      defaultRiskConfig,
	}
}

func (m *memStore) EnsureAccount(_ context.Context, userID string, startingBalance decimal.Decimal) (model.PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		return acc, nil
	}
	acc := model.PaperAccount{
		ID:              uuid.NewString(),
		UserID:          userID,
		Balance:         startingBalance,
		Equity:          startingBalance,
		UsedMargin:      decimal.Zero,
		AvailableMargin: startingBalance,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	m.accounts[userID] = acc
	return acc, nil
}

func (m *memStore) GetAccount(_ context.Context, userID string) (model.PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return model.PaperAccount{}, apperr.NotFound("paper account")
	}
	return acc, nil
}

func (m *memStore) OpenPosition(_ context.Context, pos model.Position, requiredMargin decimal.Decimal) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[pos.UserID]
	if !ok {
		return model.Position{}, apperr.NotFound("paper account")
	}
	if acc.AvailableMargin.LessThan(requiredMargin) {
		return model.Position{}, apperr.ErrInsufficientMargin
	}
	acc.UsedMargin = acc.UsedMargin.Add(requiredMargin)
	acc.AvailableMargin = acc.AvailableMargin.Sub(requiredMargin)
	m.accounts[pos.UserID] = acc

	pos.ID = uuid.NewString()
	pos.Status = types.PositionStatusActive
	pos.CreatedAt = time.Now().UTC()
	m.positions[pos.ID] = pos
	return pos, nil
}

func (m *memStore) GetPosition(_ context.Context, positionID string) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[positionID]
	if !ok {
		return model.Position{}, apperr.NotFound("position")
	}
	return pos, nil
}

func (m *memStore) ClosePosition(_ context.Context, positionID string, exitPrice decimal.Decimal, exitTime time.Time, pnl, requiredMargin decimal.Decimal) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[positionID]
	if !ok {
		return model.Position{}, apperr.NotFound("position")
	}
	if pos.Status != types.PositionStatusActive {
		return model.Position{}, apperr.ErrAlreadyClosed
	}
	pos.Status = types.PositionStatusClosed
	pos.ExitPrice = &exitPrice
	pos.ExitTime = &exitTime
	pos.ProfitLoss = &pnl
	m.positions[positionID] = pos

	acc := m.accounts[pos.UserID]
	acc.UsedMargin = acc.UsedMargin.Sub(requiredMargin)
	acc.AvailableMargin = acc.AvailableMargin.Add(requiredMargin)
	acc.Balance = acc.Balance.Add(pnl)
	acc.Equity = acc.Equity.Add(pnl)
	m.accounts[pos.UserID] = acc
	return pos, nil
}

func (m *memStore) ListPositions(_ context.Context, userID string, status types.PositionStatus) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Position
	for _, pos := range m.positions {
		if pos.UserID != userID {
			continue
		}
		if status != "" && pos.Status != status {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

func (m *memStore) CountOpen(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, pos := range m.positions {
		if pos.UserID == userID && pos.Status == types.PositionStatusActive {
			n++
		}
	}
	return n, nil
}

func (m *memStore) RiskConfig(context.Context) (RiskConfig, error) {
	return m.risk, nil
}

type staticQuotes map[string][2]string

func (q staticQuotes) Quote(symbol string) (decimal.Decimal, decimal.Decimal, bool) {
	v, ok := q[symbol]
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return decimal.RequireFromString(v[0]), decimal.RequireFromString(v[1]), true
}

type staticPairs map[string]model.TradingPair

func (p staticPairs) GetPairBySymbol(_ context.Context, symbol string) (model.TradingPair, error) {
	pair, ok := p[symbol]
	if !ok {
		return model.TradingPair{}, apperr.NotFound("pair")
	}
	return pair, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	pairs := staticPairs{"EURUSD": {Symbol: "EURUSD", Active: true}}
	quotes := staticQuotes{"EURUSD": {"1.0840", "1.0860"}}
	svc := NewService(store, quotes, pairs, d("150000"))
	return svc, store
}

func openReq(amount, leverage string) OpenRequest {
	return OpenRequest{
		Symbol:     "EURUSD",
		Side:       types.PositionSideLong,
		EntryPrice: d("100"),
		Amount:     d(amount),
		Leverage:   d(leverage),
	}
}

func TestOpenPositionReservesMargin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	pos, err := svc.OpenPosition(ctx, "u1", openReq("100", "10"))
	require.NoError(t, err)
	assert.Equal(t, types.PositionStatusActive, pos.Status)
	assert.Nil(t, pos.ExitPrice)
	assert.Nil(t, pos.ProfitLoss)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.UsedMargin.Equal(d("1000")), "used margin %s", acc.UsedMargin)
	assert.True(t, acc.AvailableMargin.Equal(d("149000")), "available %s", acc.AvailableMargin)
	assert.True(t, acc.Balance.Equal(d("150000")))
}

func TestOpenPositionInsufficientMarginLeavesLedgerUntouched(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	_, err := svc.OpenPosition(ctx, "u1", openReq("100000", "2"))
	assert.ErrorIs(t, err, apperr.ErrInsufficientMargin)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.UsedMargin.IsZero())
	assert.True(t, acc.AvailableMargin.Equal(d("150000")))

	n, err := store.CountOpen(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenPositionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	tests := []struct {
		name string
		req  OpenRequest
	}{
		{"zero amount", OpenRequest{Symbol: "EURUSD", Side: types.PositionSideLong, EntryPrice: d("100"), Amount: d("0"), Leverage: d("1")}},
		{"negative amount", OpenRequest{Symbol: "EURUSD", Side: types.PositionSideLong, EntryPrice: d("100"), Amount: d("-5"), Leverage: d("1")}},
		{"leverage below one", OpenRequest{Symbol: "EURUSD", Side: types.PositionSideLong, EntryPrice: d("100"), Amount: d("10"), Leverage: d("0.5")}},
		{"bad side", OpenRequest{Symbol: "EURUSD", Side: "sideways", EntryPrice: d("100"), Amount: d("10"), Leverage: d("1")}},
		{"unknown symbol", OpenRequest{Symbol: "USDJPY", Side: types.PositionSideLong, EntryPrice: d("100"), Amount: d("10"), Leverage: d("1")}},
		{"zero entry", OpenRequest{Symbol: "EURUSD", Side: types.PositionSideLong, EntryPrice: d("0"), Amount: d("10"), Leverage: d("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.OpenPosition(ctx, "u1", tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestOpenPositionMissingAccount(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.OpenPosition(context.Background(), "ghost", openReq("10", "1"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClosePositionRealizesPnL(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	// entry 100, exit 110, amount 10, leverage 1, long => +100
	pos, err := svc.OpenPosition(ctx, "u1", openReq("10", "1"))
	require.NoError(t, err)

	exit := d("110")
	closed, err := svc.ClosePosition(ctx, "u1", pos.ID, &exit)
	require.NoError(t, err)
	assert.Equal(t, types.PositionStatusClosed, closed.Status)
	require.NotNil(t, closed.ProfitLoss)
	assert.True(t, closed.ProfitLoss.Equal(d("100")), "pnl %s", closed.ProfitLoss)
	require.NotNil(t, closed.ExitPrice)
	assert.True(t, closed.ExitPrice.Equal(exit))
	assert.NotNil(t, closed.ExitTime)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(d("150100")))
	assert.True(t, acc.Equity.Equal(d("150100")))
	assert.True(t, acc.UsedMargin.IsZero())
	assert.True(t, acc.AvailableMargin.Equal(d("150000")))
}

func TestClosePositionShortSign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	req := openReq("10", "1")
	req.Side = types.PositionSideShort
	pos, err := svc.OpenPosition(ctx, "u1", req)
	require.NoError(t, err)

	exit := d("110")
	closed, err := svc.ClosePosition(ctx, "u1", pos.ID, &exit)
	require.NoError(t, err)
	require.NotNil(t, closed.ProfitLoss)
	assert.True(t, closed.ProfitLoss.Equal(d("-100")), "pnl %s", closed.ProfitLoss)
}

func TestCloseAtEntryRestoresLedger(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))
	before, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)

	pos, err := svc.OpenPosition(ctx, "u1", openReq("25", "4"))
	require.NoError(t, err)

	exit := pos.EntryPrice
	closed, err := svc.ClosePosition(ctx, "u1", pos.ID, &exit)
	require.NoError(t, err)
	require.NotNil(t, closed.ProfitLoss)
	assert.True(t, closed.ProfitLoss.IsZero())

	after, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(before.Balance))
	assert.True(t, after.Equity.Equal(before.Equity))
	assert.True(t, after.UsedMargin.Equal(before.UsedMargin))
	assert.True(t, after.AvailableMargin.Equal(before.AvailableMargin))
}

func TestDoubleCloseFailsWithoutLedgerDrift(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	pos, err := svc.OpenPosition(ctx, "u1", openReq("10", "1"))
	require.NoError(t, err)

	exit := d("105")
	_, err = svc.ClosePosition(ctx, "u1", pos.ID, &exit)
	require.NoError(t, err)
	accAfterFirst, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.ClosePosition(ctx, "u1", pos.ID, &exit)
	assert.ErrorIs(t, err, apperr.ErrAlreadyClosed)

	accAfterSecond, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, accAfterSecond.Balance.Equal(accAfterFirst.Balance))
	assert.True(t, accAfterSecond.UsedMargin.Equal(accAfterFirst.UsedMargin))
	assert.True(t, accAfterSecond.AvailableMargin.Equal(accAfterFirst.AvailableMargin))
}

func TestCloseChecksOwnershipAndExistence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	pos, err := svc.OpenPosition(ctx, "u1", openReq("10", "1"))
	require.NoError(t, err)

	exit := d("105")
	_, err = svc.ClosePosition(ctx, "intruder", pos.ID, &exit)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = svc.ClosePosition(ctx, "u1", uuid.NewString(), &exit)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCloseAtMarketUsesSideQuote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	req := openReq("10", "1")
	req.EntryPrice = d("1.0850")
	pos, err := svc.OpenPosition(ctx, "u1", req)
	require.NoError(t, err)

	closed, err := svc.ClosePosition(ctx, "u1", pos.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, closed.ExitPrice)
	// long closes at bid
	assert.True(t, closed.ExitPrice.Equal(d("1.0840")), "exit %s", closed.ExitPrice)
}

// Two opens that individually pass the margin check but jointly exceed
// available margin must not both succeed.
func TestConcurrentOpensCannotOverdrawMargin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	// each open needs 90k of the 150k available
	req := openReq("900", "100")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.OpenPosition(ctx, "u1", req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInsufficientMargin)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of the racing opens may pass")

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.AvailableMargin.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, acc.UsedMargin.Equal(d("90000")))
}

func TestListPositionsAttachesUnrealizedPnL(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	req := openReq("10", "1")
	req.EntryPrice = d("1.0800")
	_, err := svc.OpenPosition(ctx, "u1", req)
	require.NoError(t, err)

	active, err := svc.ListPositions(ctx, "u1", types.PositionStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].UnrealizedPnL)
	// long marked at bid 1.0840: (1.0840-1.0800)*10 = 0.04
	assert.True(t, active[0].UnrealizedPnL.Equal(d("0.04")), "pnl %s", active[0].UnrealizedPnL)

	_, err = svc.ListPositions(ctx, "u1", "pending")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAccountViewMarksToMarket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.Account(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(d("150000")))
	assert.True(t, view.MarkEquity.Equal(d("150000")))
	assert.Zero(t, view.OpenPositions)

	req := openReq("10", "1")
	req.EntryPrice = d("1.0800")
	_, err = svc.OpenPosition(ctx, "u1", req)
	require.NoError(t, err)

	view, err = svc.Account(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.OpenPositions)
	assert.True(t, view.UnrealizedPnL.Equal(d("0.04")))
	assert.True(t, view.MarkEquity.Equal(d("150000.04")))
}

func TestMaxOpenPositionsEnforced(t *testing.T) {
	svc, store := newTestService(t)
	store.risk.MaxOpenPositions = 2
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	for i := 0; i < 2; i++ {
		_, err := svc.OpenPosition(ctx, "u1", openReq("10", "1"))
		require.NoError(t, err)
	}
	_, err := svc.OpenPosition(ctx, "u1", openReq("10", "1"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMaxLeverageEnforced(t *testing.T) {
	svc, store := newTestService(t)
	store.risk.MaxLeverage = d("50")
	ctx := context.Background()
	require.NoError(t, svc.EnsureAccount(ctx, "u1"))

	_, err := svc.OpenPosition(ctx, "u1", openReq("10", "100"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
