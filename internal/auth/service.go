package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AccountEnsurer provisions the paper-trading ledger for a new user.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, userID string) error
}

type Service struct {
	store      Store
	issuer     string
	secret     []byte
	ttl        time.Duration
	accountSvc AccountEnsurer
}

func NewService(store Store, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, issuer: issuer, secret: secret, ttl: ttl}
}

func (s *Service) SetAccountEnsurer(accountSvc AccountEnsurer) {
	s.accountSvc = accountSvc
}

func (s *Service) Register(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, apperr.Validation("valid email required")
	}
	if len(password) < 8 {
		return model.User{}, apperr.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.store.CreateUser(ctx, email, string(hash))
	if err != nil {
		return model.User{}, err
	}
	if s.accountSvc != nil {
		if err := s.accountSvc.EnsureAccount(ctx, user.ID); err != nil {
			return model.User{}, fmt.Errorf("provision paper account: %w", err)
		}
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	userID, hash, err := s.store.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", model.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
		}
		return "", model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", model.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", model.User{}, err
	}
	token, err := s.signToken(userID)
	if err != nil {
		return "", model.User{}, err
	}
	return token, user, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (model.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *Service) signToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	if claims.Issuer != s.issuer {
		return "", fmt.Errorf("%w: invalid issuer", apperr.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: invalid subject", apperr.ErrUnauthenticated)
	}
	return claims.Subject, nil
}
