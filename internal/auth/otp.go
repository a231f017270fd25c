package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

type OTPRecord struct {
	ID         int64
	Email      string
	CodeHash   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type OTPStore interface {
	Save(ctx context.Context, rec *OTPRecord) error
	// Latest returns the newest unconsumed code for email, or nil.
	Latest(ctx context.Context, email string) (*OTPRecord, error)
	IncrementAttempts(ctx context.Context, id int64) error
	Consume(ctx context.Context, id int64) (bool, error)
}

// CodeSender delivers a one-time code out of band.
type CodeSender interface {
	Send(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogCodeSender writes codes to the log. Email delivery is not part of this
// service.
type LogCodeSender struct {
	Logger *slog.Logger
}

func (s LogCodeSender) Send(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.Logger.InfoContext(ctx, "one-time code issued", "email", email, "code", code, "expires_at", expiresAt)
	return nil
}

type CodeIssuerConfig struct {
	TTL         time.Duration
	MaxAttempts int
	BCryptCost  int
}

type CodeIssuer struct {
	store  OTPStore
	sender CodeSender
	config CodeIssuerConfig
	logger *slog.Logger
}

func NewCodeIssuer(store OTPStore, sender CodeSender, config CodeIssuerConfig, logger *slog.Logger) *CodeIssuer {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.BCryptCost == 0 {
		config.BCryptCost = bcrypt.DefaultCost
	}
	return &CodeIssuer{
		store:  store,
		sender: sender,
		config: config,
		logger: logger,
	}
}

func (c *CodeIssuer) Issue(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return errors.NewInternalError("failed to generate code", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), c.config.BCryptCost)
	if err != nil {
		return errors.NewInternalError("failed to hash code", err)
	}

	now := time.Now().UTC()
	rec := &OTPRecord{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(c.config.TTL),
		CreatedAt: now,
	}
	if err := c.store.Save(ctx, rec); err != nil {
		c.logger.Error("failed to store one-time code", "error", err, "email", email)
		return err
	}

	if err := c.sender.Send(ctx, email, code, rec.ExpiresAt); err != nil {
		c.logger.Error("failed to send one-time code", "error", err, "email", email)
		return errors.NewStoreUnavailableError("failed to deliver code", err)
	}
	return nil
}

// Verify checks code against the newest outstanding code for email and
// consumes it on success.
func (c *CodeIssuer) Verify(ctx context.Context, email, code string) error {
	rec, err := c.store.Latest(ctx, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.ErrInvalidCode
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		c.logger.Warn("expired one-time code presented", "email", email, "otp_id", rec.ID)
		return errors.ErrInvalidCode
	}
	if rec.Attempts >= c.config.MaxAttempts {
		c.logger.Warn("one-time code attempts exhausted", "email", email, "otp_id", rec.ID)
		return errors.ErrInvalidCode
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)); err != nil {
		if incErr := c.store.IncrementAttempts(ctx, rec.ID); incErr != nil {
			return incErr
		}
		return errors.ErrInvalidCode
	}

	consumed, err := c.store.Consume(ctx, rec.ID)
	if err != nil {
		return err
	}
	if !consumed {
		return errors.ErrInvalidCode
	}
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
