package refdata

import (
	"context"
	"errors"
	"strings"

	"tradelab/internal/apperr"
	"tradelab/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectPair = `
	select id, symbol, base_asset, quote_asset, display_name, precision, seed_price, active
	from trading_pairs`

func (s *Store) GetPairBySymbol(ctx context.Context, symbol string) (model.TradingPair, error) {
	var p model.TradingPair
	err := s.pool.QueryRow(ctx, selectPair+" where symbol = $1", strings.ToUpper(symbol)).
		Scan(&p.ID, &p.Symbol, &p.BaseAsset, &p.QuoteAsset, &p.DisplayName, &p.Precision, &p.SeedPrice, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.NotFound("trading pair")
	}
	return p, err
}

func (s *Store) ListPairs(ctx context.Context, activeOnly bool) ([]model.TradingPair, error) {
	query := selectPair
	if activeOnly {
		query += " where active"
	}
	query += " order by symbol"
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TradingPair
	for rows.Next() {
		var p model.TradingPair
		if err := rows.Scan(&p.ID, &p.Symbol, &p.BaseAsset, &p.QuoteAsset, &p.DisplayName, &p.Precision, &p.SeedPrice, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpsertPair(ctx context.Context, p model.TradingPair) (model.TradingPair, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		insert into trading_pairs (id, symbol, base_asset, quote_asset, display_name, precision, seed_price, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (symbol) do update set
			base_asset = excluded.base_asset,
			quote_asset = excluded.quote_asset,
			display_name = excluded.display_name,
			precision = excluded.precision,
			seed_price = excluded.seed_price,
			active = excluded.active
		returning id
	`, p.ID, strings.ToUpper(p.Symbol), p.BaseAsset, p.QuoteAsset, p.DisplayName, p.Precision, p.SeedPrice, p.Active).Scan(&p.ID)
	return p, err
}

func (s *Store) DeletePair(ctx context.Context, symbol string) error {
	tag, err := s.pool.Exec(ctx, "delete from trading_pairs where symbol = $1", strings.ToUpper(symbol))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("trading pair")
	}
	return nil
}

func (s *Store) ListStrategyTypes(ctx context.Context) ([]model.StrategyType, error) {
	rows, err := s.pool.Query(ctx, "select id, name, description from strategy_types order by name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StrategyType
	for rows.Next() {
		var st model.StrategyType
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) CreateStrategyType(ctx context.Context, name, description string) (model.StrategyType, error) {
	st := model.StrategyType{ID: uuid.NewString(), Name: name, Description: description}
	err := s.pool.QueryRow(ctx, `
		insert into strategy_types (id, name, description) values ($1, $2, $3)
		on conflict (name) do update set description = excluded.description
		returning id
	`, st.ID, name, description).Scan(&st.ID)
	return st, err
}

func (s *Store) DeleteStrategyType(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "delete from strategy_types where id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("strategy type")
	}
	return nil
}
