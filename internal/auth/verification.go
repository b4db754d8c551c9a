package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CodeSender delivers a freshly issued verification code to the user.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogSender writes codes to the application log. It stands in for an email
// provider during local development and in tests.
type LogSender struct {
	Log *logrus.Logger
}

func (s LogSender) SendCode(_ context.Context, email, code string) error {
	s.Log.WithFields(logrus.Fields{"email": email, "code": code}).Info("verification code issued")
	return nil
}

type Verifier struct {
	store          Store
	sender         CodeSender
	ttl            time.Duration
	resendInterval time.Duration
	now            func() time.Time
}

func NewVerifier(store Store, sender CodeSender, ttl, resendInterval time.Duration) *Verifier {
	return &Verifier{
		store:          store,
		sender:         sender,
		ttl:            ttl,
		resendInterval: resendInterval,
		now:            time.Now,
	}
}

type VerificationStatus struct {
	Verified bool `json:"verified"`
	Pending  bool `json:"pending"`
}

// IssueCode creates and delivers a six digit code. A second request within
// the resend interval is rejected so one user cannot flood the sender.
func (v *Verifier) IssueCode(ctx context.Context, userID string) (time.Time, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if user.EmailVerified {
		return time.Time{}, apperr.Validation("email already verified")
	}
	now := v.now().UTC()
	last, err := v.store.LatestCode(ctx, userID)
	switch {
	case err == nil:
		if now.Sub(last.CreatedAt) < v.resendInterval {
			return time.Time{}, fmt.Errorf("%w: a code was sent recently, try again later", apperr.ErrRateLimited)
		}
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return time.Time{}, err
	}

	code := model.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    userID,
		Code:      randomCode(),
		CreatedAt: now,
		ExpiresAt: now.Add(v.ttl),
	}
	if err := v.store.CreateCode(ctx, code); err != nil {
		return time.Time{}, err
	}
	if err := v.sender.SendCode(ctx, user.Email, code.Code); err != nil {
		return time.Time{}, fmt.Errorf("send verification code: %w", err)
	}
	return code.ExpiresAt, nil
}

// VerifyCode consumes the newest valid code and flips the user to verified.
// Wrong, expired and already used codes are indistinguishable to the caller.
func (v *Verifier) VerifyCode(ctx context.Context, userID, code string) error {
	if len(code) != 6 {
		return apperr.Validation("code must be 6 digits")
	}
	err := v.store.ConsumeCode(ctx, userID, code, v.now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("invalid or expired code")
		}
		return err
	}
	return v.store.MarkVerified(ctx, userID)
}

func (v *Verifier) Status(ctx context.Context, userID string) (VerificationStatus, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return VerificationStatus{}, err
	}
	if user.EmailVerified {
		return VerificationStatus{Verified: true}, nil
	}
	last, err := v.store.LatestCode(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return VerificationStatus{}, nil
		}
		return VerificationStatus{}, err
	}
	pending := !last.IsUsed && last.ExpiresAt.After(v.now().UTC())
	return VerificationStatus{Pending: pending}, nil
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
