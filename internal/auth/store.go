package auth

import (
	"context"
	"errors"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists users, credentials and verification codes. The pgx
// implementation lives here; tests run against an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetCredentials(ctx context.Context, email string) (userID, passwordHash string, err error)
	MarkVerified(ctx context.Context, userID string) error

	CreateCode(ctx context.Context, code model.VerificationCode) error
	LatestCode(ctx context.Context, userID string) (model.VerificationCode, error)
	ConsumeCode(ctx context.Context, userID, code string, now time.Time) error
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateUser(ctx context.Context, email, passwordHash string) (model.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback(ctx)

	var user model.User
	err = tx.QueryRow(ctx,
		`insert into users (id, email) values ($1, $2)
		 on conflict (email) do nothing
		 returning id, email, email_verified, created_at`,
		uuid.NewString(), email,
	).Scan(&user.ID, &user.Email, &user.EmailVerified, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, apperr.Validation("email already registered")
		}
		return model.User{}, err
	}
	_, err = tx.Exec(ctx,
		"insert into user_credentials (user_id, password_hash) values ($1, $2)",
		user.ID, passwordHash,
	)
	if err != nil {
		return model.User{}, err
	}
	return user, tx.Commit(ctx)
}

func (s *PGStore) GetUser(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	err := s.pool.QueryRow(ctx,
		"select id, email, email_verified, created_at from users where id = $1",
		userID,
	).Scan(&user.ID, &user.Email, &user.EmailVerified, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperr.NotFound("user")
	}
	return user, err
}

func (s *PGStore) GetCredentials(ctx context.Context, email string) (string, string, error) {
	var userID, hash string
	err := s.pool.QueryRow(ctx,
		`select u.id, c.password_hash
		 from users u join user_credentials c on c.user_id = u.id
		 where u.email = $1`,
		email,
	).Scan(&userID, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", apperr.NotFound("user")
	}
	return userID, hash, err
}

func (s *PGStore) MarkVerified(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, "update users set email_verified = true where id = $1", userID)
	return err
}

func (s *PGStore) CreateCode(ctx context.Context, code model.VerificationCode) error {
	_, err := s.pool.Exec(ctx,
		`insert into verification_codes (id, user_id, code, is_used, created_at, expires_at)
		 values ($1, $2, $3, $4, $5, $6)`,
		code.ID, code.UserID, code.Code, code.IsUsed, code.CreatedAt, code.ExpiresAt,
	)
	return err
}

func (s *PGStore) LatestCode(ctx context.Context, userID string) (model.VerificationCode, error) {
	var code model.VerificationCode
	err := s.pool.QueryRow(ctx,
		`select id, user_id, code, is_used, created_at, expires_at
		 from verification_codes
		 where user_id = $1
		 order by created_at desc
		 limit 1`,
		userID,
	).Scan(&code.ID, &code.UserID, &code.Code, &code.IsUsed, &code.CreatedAt, &code.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.VerificationCode{}, apperr.NotFound("verification code")
	}
	return code, err
}

// ConsumeCode atomically marks the newest matching valid code as used. The
// conditional update makes reuse of the same code a no-op that reports
// not-found, so a code only ever verifies once.
func (s *PGStore) ConsumeCode(ctx context.Context, userID, code string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`update verification_codes set is_used = true
		 where id = (
			select id from verification_codes
			where user_id = $1 and code = $2 and is_used = false and expires_at > $3
			order by created_at desc
			limit 1
		 )`,
		userID, code, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("verification code")
	}
	return nil
}
