package auth

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

// SessionResolver joins an authenticated identity to the local users table.
type SessionResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*identity.Session, error)
	ResolveByID(ctx context.Context, id int64) (*identity.Session, error)
}

type Service struct {
	codes    *CodeIssuer
	resolver SessionResolver
	tokens   TokenGenerator
	logger   *slog.Logger
}

func NewService(codes *CodeIssuer, resolver SessionResolver, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		codes:    codes,
		resolver: resolver,
		tokens:   tokens,
		logger:   logger,
	}
}

func (s *Service) RequestCode(ctx context.Context, dto RequestCodeDTO) error {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return err
	}
	return s.codes.Issue(ctx, dto.Email)
}

// VerifyCode exchanges a valid one-time code for a token pair. The verified
// email must belong to a live local user.
func (s *Service) VerifyCode(ctx context.Context, dto VerifyCodeDTO) (*LoginResponse, error) {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := dto.Email

	if err := s.codes.Verify(ctx, email, strings.TrimSpace(dto.Code)); err != nil {
		s.logger.Warn("one-time code rejected", "email", email, "error", err)
		return nil, err
	}

	session, err := s.resolver.ResolveByEmail(ctx, email)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			s.logger.Warn("verified email has no user", "email", email)
			return nil, errors.NewUnauthorizedError("no account for this email", errors.ErrCodeUserNotFound)
		}
		return nil, err
	}

	tokens, err := s.issueTokens(session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", "user_id", session.UserID(), "roles", session.Roles.Strings())
	return &LoginResponse{AuthTokens: tokens, Session: NewSessionResponse(session)}, nil
}

func (s *Service) RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	session, err := s.sessionFor(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issueTokens(session)
}

// Authenticate validates an access token and re-resolves the user and roles,
// so role changes apply on the next request.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*identity.Session, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	return s.sessionFor(ctx, claims)
}

func (s *Service) sessionFor(ctx context.Context, claims *Claims) (*identity.Session, error) {
	id, err := claims.ID()
	if err != nil {
		return nil, err
	}
	session, err := s.resolver.ResolveByID(ctx, id)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, err
	}
	return session, nil
}

func (s *Service) issueTokens(session *identity.Session) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(session.UserID(), session.User.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(session.UserID(), session.User.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
