package paper

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
	"github.com/shopspring/decimal"
)

// Store is the persistence boundary of the paper-trading ledger. The pgx
// implementation below keeps every money mutation inside one serializable
// transaction with conditional updates, so two racing opens can never jointly
// overdraw available margin.
type Store interface {
	EnsureAccount(ctx context.Context, userID string, startingBalance decimal.Decimal) (model.PaperAccount, error)
	GetAccount(ctx context.Context, userID string) (model.PaperAccount, error)
	OpenPosition(ctx context.Context, pos model.Position, requiredMargin decimal.Decimal) (model.Position, error)
	GetPosition(ctx context.Context, positionID string) (model.Position, error)
	ClosePosition(ctx context.Context, positionID string, exitPrice decimal.Decimal, exitTime time.Time, pnl, requiredMargin decimal.Decimal) (model.Position, error)
	ListPositions(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error)
	CountOpen(ctx context.Context, userID string) (int, error)
	RiskConfig(ctx context.Context) (RiskConfig, error)
}

type RiskConfig struct {
	MaxLeverage      decimal.Decimal
	MaxOpenPositions int
}

var defaultRiskConfig = RiskConfig{
	MaxLeverage:      decimal.NewFromInt(100),
	MaxOpenPositions: 200,
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) EnsureAccount(ctx context.Context, userID string, startingBalance decimal.Decimal) (model.PaperAccount, error) {
	acc, err := s.GetAccount(ctx, userID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return model.PaperAccount{}, err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		insert into paper_accounts (id, user_id, balance, equity, used_margin, available_margin, created_at, updated_at)
		values ($1, $2, $3, $3, 0, $3, $4, $4)
		on conflict (user_id) do nothing
	`, uuid.NewString(), userID, startingBalance, now)
	if err != nil {
		return model.PaperAccount{}, err
	}
	return s.GetAccount(ctx, userID)
}

func (s *PGStore) GetAccount(ctx context.Context, userID string) (model.PaperAccount, error) {
	var a model.PaperAccount
	err := s.pool.QueryRow(ctx, `
		select id, user_id, balance, equity, used_margin, available_margin, created_at, updated_at
		from paper_accounts where user_id = $1
	`, userID).Scan(&a.ID, &a.UserID, &a.Balance, &a.Equity, &a.UsedMargin, &a.AvailableMargin, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, apperr.NotFound("paper account")
	}
	return a, err
}

func (s *PGStore) OpenPosition(ctx context.Context, pos model.Position, requiredMargin decimal.Decimal) (model.Position, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Position{}, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		update paper_accounts
		set used_margin = used_margin + $2,
		    available_margin = available_margin - $2,
		    updated_at = $3
		where user_id = $1 and available_margin >= $2
	`, pos.UserID, requiredMargin, now)
	if err != nil {
		return model.Position{}, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "select exists(select 1 from paper_accounts where user_id = $1)", pos.UserID).Scan(&exists); err != nil {
			return model.Position{}, err
		}
		if !exists {
			return model.Position{}, apperr.NotFound("paper account")
		}
		return model.Position{}, apperr.ErrInsufficientMargin
	}

	pos.ID = uuid.NewString()
	pos.Status = types.PositionStatusActive
	pos.CreatedAt = now
	_, err = tx.Exec(ctx, `
		insert into positions (id, user_id, symbol, side, status, entry_price, amount, leverage, stop_loss, take_profit, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, pos.ID, pos.UserID, pos.Symbol, string(pos.Side), string(pos.Status), pos.EntryPrice, pos.Amount, pos.Leverage, pos.StopLoss, pos.TakeProfit, pos.CreatedAt)
	if err != nil {
		return model.Position{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Position{}, err
	}
	return pos, nil
}

func (s *PGStore) GetPosition(ctx context.Context, positionID string) (model.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx, selectPosition+" where id = $1", positionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.NotFound("position")
	}
	return p, err
}

func (s *PGStore) ClosePosition(ctx context.Context, positionID string, exitPrice decimal.Decimal, exitTime time.Time, pnl, requiredMargin decimal.Decimal) (model.Position, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Position{}, err
	}
	defer tx.Rollback(ctx)

	// Guard on status so a racing double-close mutates the ledger once.
	tag, err := tx.Exec(ctx, `
		update positions
		set status = $2, exit_price = $3, exit_time = $4, profit_loss = $5
		where id = $1 and status = $6
	`, positionID, string(types.PositionStatusClosed), exitPrice, exitTime, pnl, string(types.PositionStatusActive))
	if err != nil {
		return model.Position{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Position{}, apperr.ErrAlreadyClosed
	}

	var userID string
	if err := tx.QueryRow(ctx, "select user_id from positions where id = $1", positionID).Scan(&userID); err != nil {
		return model.Position{}, err
	}
	_, err = tx.Exec(ctx, `
		update paper_accounts
		set used_margin = used_margin - $2,
		    available_margin = available_margin + $2,
		    balance = balance + $3,
		    equity = equity + $3,
		    updated_at = $4
		where user_id = $1
	`, userID, requiredMargin, pnl, time.Now().UTC())
	if err != nil {
		return model.Position{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Position{}, err
	}
	return s.GetPosition(ctx, positionID)
}

func (s *PGStore) ListPositions(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error) {
	query := selectPosition + " where user_id = $1"
	args := []any{userID}
	if status != "" {
		query += " and status = $2"
		args = append(args, string(status))
	}
	query += " order by created_at desc"
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) CountOpen(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "select count(*) from positions where user_id = $1 and status = $2", userID, string(types.PositionStatusActive)).Scan(&n)
	return n, err
}

func (s *PGStore) RiskConfig(ctx context.Context) (RiskConfig, error) {
	cfg := defaultRiskConfig
	var maxLev decimal.Decimal
	var maxOpen int
	err := s.pool.QueryRow(ctx, "select max_leverage, max_open_positions from risk_config where id = 1").Scan(&maxLev, &maxOpen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, nil
		}
		return cfg, err
	}
	if maxLev.GreaterThan(decimal.Zero) {
		cfg.MaxLeverage = maxLev
	}
	if maxOpen > 0 {
		cfg.MaxOpenPositions = maxOpen
	}
	return cfg, nil
}

const selectPosition = `
	select id, user_id, symbol, side, status, entry_price, amount, leverage,
	       stop_loss, take_profit, exit_price, exit_time, profit_loss, created_at
	from positions`

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var side, status string
	err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &side, &status, &p.EntryPrice, &p.Amount, &p.Leverage,
		&p.StopLoss, &p.TakeProfit, &p.ExitPrice, &p.ExitTime, &p.ProfitLoss, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Side = types.PositionSide(side)
	p.Status = types.PositionStatus(status)
	return p, nil
}
