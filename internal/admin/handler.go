package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const tokenAudience = "tradelab-admin"

type ctxKey int

const adminIDKey ctxKey = iota

// Handler covers the admin surface: login, user listing and the risk
// configuration enforced on position opens.
type Handler struct {
	pool   *pgxpool.Pool
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewHandler(pool *pgxpool.Pool, issuer string, secret []byte, ttl time.Duration) *Handler {
	return &Handler{pool: pool, issuer: issuer, secret: secret, ttl: ttl}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	var adminID, hash string
	err := h.pool.QueryRow(r.Context(),
		"select id, password_hash from admins where email = $1", req.Email,
	).Scan(&adminID, &hash)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid credentials"})
		return
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    h.issuer,
		Subject:   adminID,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "token generation failed"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Middleware admits only bearer tokens carrying the admin audience. User
// session tokens fail the audience check even though they share the secret.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if len(authz) < 8 || authz[:7] != "Bearer " {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing bearer token"})
			return
		}
		adminID, err := h.parseToken(authz[7:])
		if err != nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid admin token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminIDKey, adminID)))
	})
}

func (h *Handler) parseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return h.secret, nil
	}, jwt.WithIssuer(h.issuer), jwt.WithAudience(tokenAudience))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

type userRow struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	EmailVerified bool            `json:"email_verified"`
	CreatedAt     time.Time       `json:"created_at"`
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"`
	OpenPositions int             `json:"open_positions"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pool.Query(r.Context(), `
		select u.id, u.email, u.email_verified, u.created_at,
		       coalesce(a.balance, 0), coalesce(a.equity, 0),
		       (select count(*) from positions p where p.user_id = u.id and p.status = 'active')
		from users u
		left join paper_accounts a on a.user_id = u.id
		order by u.created_at desc`)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer rows.Close()

	users := []userRow{}
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.ID, &u.Email, &u.EmailVerified, &u.CreatedAt, &u.Balance, &u.Equity, &u.OpenPositions); err != nil {
			httputil.WriteError(w, err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

type riskConfig struct {
	MaxLeverage      decimal.Decimal `json:"max_leverage"`
	MaxOpenPositions int             `json:"max_open_positions"`
}

func (h *Handler) GetRiskConfig(w http.ResponseWriter, r *http.Request) {
	var cfg riskConfig
	err := h.pool.QueryRow(r.Context(),
		"select max_leverage, max_open_positions from risk_config where id = 1",
	).Scan(&cfg.MaxLeverage, &cfg.MaxOpenPositions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, apperr.NotFound("risk config"))
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

type riskConfigRequest struct {
	MaxLeverage      string `json:"max_leverage"`
	MaxOpenPositions int    `json:"max_open_positions"`
}

func (h *Handler) UpdateRiskConfig(w http.ResponseWriter, r *http.Request) {
	var req riskConfigRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	maxLev, err := decimal.NewFromString(req.MaxLeverage)
	if err != nil || !maxLev.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		httputil.WriteError(w, apperr.Validation("max_leverage must be a number >= 1"))
		return
	}
	if req.MaxOpenPositions < 1 {
		httputil.WriteError(w, apperr.Validation("max_open_positions must be >= 1"))
		return
	}
	_, err = h.pool.Exec(r.Context(), `
		insert into risk_config (id, max_leverage, max_open_positions)
		values (1, $1, $2)
		on conflict (id) do update set max_leverage = $1, max_open_positions = $2`,
		maxLev, req.MaxOpenPositions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, riskConfig{MaxLeverage: maxLev, MaxOpenPositions: req.MaxOpenPositions})
}
