package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var schema = []string{
	`create table if not exists users (
		id uuid primary key,
		email text not null unique,
		email_verified boolean not null default false,
		created_at timestamptz not null default now()
	)`,
	`create table if not exists user_credentials (
		user_id uuid primary key references users(id),
		password_hash text not null
	)`,
	`create table if not exists verification_codes (
		id uuid primary key,
		user_id uuid not null references users(id),
		code text not null,
		is_used boolean not null default false,
		created_at timestamptz not null,
		expires_at timestamptz not null
	)`,
	`create index if not exists verification_codes_user_idx on verification_codes (user_id, created_at desc)`,
	`create table if not exists paper_accounts (
		id uuid primary key,
		user_id uuid not null unique references users(id),
		balance numeric not null,
		equity numeric not null,
		used_margin numeric not null default 0,
		available_margin numeric not null check (available_margin >= 0),
		created_at timestamptz not null,
		updated_at timestamptz not null
	)`,
	`create table if not exists positions (
		id uuid primary key,
		user_id uuid not null references users(id),
		symbol text not null,
		side text not null,
		status text not null,
		entry_price numeric not null,
		amount numeric not null,
		leverage numeric not null,
		stop_loss numeric,
		take_profit numeric,
		exit_price numeric,
		exit_time timestamptz,
		profit_loss numeric,
		created_at timestamptz not null
	)`,
	`create index if not exists positions_user_idx on positions (user_id, status, created_at desc)`,
	`create table if not exists trades (
		id uuid primary key,
		user_id uuid not null references users(id),
		pair_symbol text not null,
		strategy_type text not null,
		direction text not null,
		entry_price numeric not null,
		exit_price numeric,
		size numeric not null,
		profit_loss numeric,
		outcome text,
		session text not null default '',
		notes text not null default '',
		entry_date timestamptz not null,
		exit_date timestamptz,
		created_at timestamptz not null,
		updated_at timestamptz not null
	)`,
	`create index if not exists trades_user_idx on trades (user_id, entry_date desc)`,
	`create table if not exists trading_pairs (
		id uuid primary key,
		symbol text not null unique,
		base_asset text not null,
		quote_asset text not null,
		display_name text not null,
		precision int not null default 5,
		seed_price numeric not null,
		active boolean not null default true
	)`,
	`create table if not exists strategy_types (
		id uuid primary key,
		name text not null unique,
		description text not null default ''
	)`,
	`create table if not exists admins (
		id uuid primary key,
		email text not null unique,
		password_hash text not null,
		created_at timestamptz not null default now()
	)`,
	`create table if not exists risk_config (
		id int primary key,
		max_leverage numeric not null,
		max_open_positions int not null
	)`,
	`insert into risk_config (id, max_leverage, max_open_positions)
		values (1, 100, 200) on conflict (id) do nothing`,
}

type seedPair struct {
	symbol, base, quote, name string
	precision                 int
	seedPrice                 string
}

var seedPairs = []seedPair{
	{"EURUSD", "EUR", "USD", "Euro / US Dollar", 5, "1.0850"},
	{"GBPUSD", "GBP", "USD", "British Pound / US Dollar", 5, "1.2700"},
	{"XAUUSD", "XAU", "USD", "Gold / US Dollar", 2, "2350.00"},
	{"BTCUSD", "BTC", "USD", "Bitcoin / US Dollar", 2, "64000.00"},
}

var seedStrategies = []string{"Breakout", "Trend Following", "Mean Reversion", "Scalping", "Supply & Demand"}

// Migrate creates the schema if needed and seeds reference data plus the
// configured admin. Safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, adminEmail, adminPassword string) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	for _, p := range seedPairs {
		_, err := pool.Exec(ctx, `
			insert into trading_pairs (id, symbol, base_asset, quote_asset, display_name, precision, seed_price, active)
			values ($1, $2, $3, $4, $5, $6, $7, true)
			on conflict (symbol) do nothing
		`, uuid.NewString(), p.symbol, p.base, p.quote, p.name, p.precision, p.seedPrice)
		if err != nil {
			return err
		}
	}
	for _, name := range seedStrategies {
		_, err := pool.Exec(ctx, `
			insert into strategy_types (id, name) values ($1, $2)
			on conflict (name) do nothing
		`, uuid.NewString(), name)
		if err != nil {
			return err
		}
	}
	if adminEmail != "" && adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			insert into admins (id, email, password_hash) values ($1, $2, $3)
			on conflict (email) do update set password_hash = excluded.password_hash
		`, uuid.NewString(), adminEmail, string(hash))
		if err != nil {
			return err
		}
	}
	return nil
}
