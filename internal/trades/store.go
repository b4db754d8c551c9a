package trades

import (
	"context"
	"errors"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"
	"tradelab/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists backtesting journal entries. Every query is scoped by
// user_id so one user can never read or mutate another's journal; a
// cross-user id lookup reports not-found rather than leaking existence.
type Store interface {
	Create(ctx context.Context, t model.Trade) (model.Trade, error)
	Get(ctx context.Context, userID, tradeID string) (model.Trade, error)
	List(ctx context.Context, userID string) ([]model.Trade, error)
	Update(ctx context.Context, t model.Trade) (model.Trade, error)
	Delete(ctx context.Context, userID, tradeID string) error
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const selectTrade = `
	select id, user_id, pair_symbol, strategy_type, direction, entry_price, exit_price,
	       size, profit_loss, outcome, session, notes, entry_date, exit_date, created_at, updated_at
	from trades`

func (s *PGStore) Create(ctx context.Context, t model.Trade) (model.Trade, error) {
	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		insert into trades (id, user_id, pair_symbol, strategy_type, direction, entry_price, exit_price,
			size, profit_loss, outcome, session, notes, entry_date, exit_date, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, t.ID, t.UserID, t.PairSymbol, t.StrategyType, string(t.Direction), t.EntryPrice, t.ExitPrice,
		t.Size, t.ProfitLoss, outcomeArg(t.Outcome), t.Session, t.Notes, t.EntryDate, t.ExitDate, t.CreatedAt, t.UpdatedAt)
	return t, err
}

func (s *PGStore) Get(ctx context.Context, userID, tradeID string) (model.Trade, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx, selectTrade+" where id = $1 and user_id = $2", tradeID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, apperr.NotFound("trade")
	}
	return t, err
}

func (s *PGStore) List(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, selectTrade+" where user_id = $1 order by entry_date desc, created_at desc", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, t model.Trade) (model.Trade, error) {
	t.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		update trades
		set pair_symbol = $3, strategy_type = $4, direction = $5, entry_price = $6, exit_price = $7,
		    size = $8, profit_loss = $9, outcome = $10, session = $11, notes = $12,
		    entry_date = $13, exit_date = $14, updated_at = $15
		where id = $1 and user_id = $2
	`, t.ID, t.UserID, t.PairSymbol, t.StrategyType, string(t.Direction), t.EntryPrice, t.ExitPrice,
		t.Size, t.ProfitLoss, outcomeArg(t.Outcome), t.Session, t.Notes, t.EntryDate, t.ExitDate, t.UpdatedAt)
	if err != nil {
		return model.Trade{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Trade{}, apperr.NotFound("trade")
	}
	return s.Get(ctx, t.UserID, t.ID)
}

func (s *PGStore) Delete(ctx context.Context, userID, tradeID string) error {
	tag, err := s.pool.Exec(ctx, "delete from trades where id = $1 and user_id = $2", tradeID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("trade")
	}
	return nil
}

func outcomeArg(o *types.TradeOutcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func scanTrade(row pgx.Row) (model.Trade, error) {
	var t model.Trade
	var direction string
	var outcome *string
	err := row.Scan(&t.ID, &t.UserID, &t.PairSymbol, &t.StrategyType, &direction, &t.EntryPrice, &t.ExitPrice,
		&t.Size, &t.ProfitLoss, &outcome, &t.Session, &t.Notes, &t.EntryDate, &t.ExitDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Direction = types.TradeDirection(direction)
	if outcome != nil {
		o := types.TradeOutcome(*outcome)
		t.Outcome = &o
	}
	return t, nil
}
