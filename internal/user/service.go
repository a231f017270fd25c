package user

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type Repository interface {
	List(ctx context.Context, role *identity.Role) ([]*User, error)
	GetByID(ctx context.Context, id int64, includeDeleted bool) (*User, error)
	GetByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id int64, name, email *string) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
	AddRole(ctx context.Context, userID int64, role identity.Role) error
	RemoveRole(ctx context.Context, userID int64, role identity.Role) (bool, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ResolveByEmail maps a verified email to its live user and current roles.
func (s *Service) ResolveByEmail(ctx context.Context, email string) (*identity.Session, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email), false)
	if err != nil {
		return nil, err
	}
	return u.Session(), nil
}

// ResolveByID re-reads the user and roles. Deactivated users do not resolve.
func (s *Service) ResolveByID(ctx context.Context, id int64) (*identity.Session, error) {
	u, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return u.Session(), nil
}

func (s *Service) List(ctx context.Context, session *identity.Session, role string) ([]*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}

	var filter *identity.Role
	if role != "" {
		r, err := identity.ParseRole(role)
		if err != nil {
			return nil, errors.NewValidationFieldError("role", err.Error(), errors.ErrCodeInvalidRole)
		}
		filter = &r
	}

	users, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "role", role)
		return nil, err
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, session *identity.Session, id int64) (*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, err
	}
	return u, nil
}

func (s *Service) Create(ctx context.Context, session *identity.Session, dto CreateUserDTO) (*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(dto.Email)
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	roles := make([]identity.Role, 0, len(dto.Roles))
	for _, r := range dto.Roles {
		role, _ := identity.ParseRole(r)
		roles = append(roles, role)
	}

	u := &User{
		User: identity.User{
			Name:      dto.Name,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		},
		Roles: identity.NewRoles(roles...),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "roles", u.Roles.Strings(), "by", session.UserID())
	return u, nil
}

func (s *Service) Update(ctx context.Context, session *identity.Session, id int64, dto UpdateUserDTO) (*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var email *string
	if dto.Email != nil {
		normalized := NormalizeEmail(*dto.Email)
		if err := s.ensureEmailFree(ctx, normalized, id); err != nil {
			return nil, err
		}
		email = &normalized
	}

	if err := s.repo.Update(ctx, id, dto.Name, email); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}
	return s.repo.GetByID(ctx, id, true)
}

func (s *Service) Delete(ctx context.Context, session *identity.Session, id int64) error {
	if err := s.authorize(session); err != nil {
		return err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return err
	}
	if !deleted {
		return errors.ErrUserNotFound
	}
	s.logger.Info("user deactivated", "user_id", id, "by", session.UserID())
	return nil
}

func (s *Service) AssignRole(ctx context.Context, session *identity.Session, id int64, role string) (*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	r, err := identity.ParseRole(role)
	if err != nil {
		return nil, errors.NewValidationFieldError("role", err.Error(), errors.ErrCodeInvalidRole)
	}
	if _, err := s.repo.GetByID(ctx, id, false); err != nil {
		return nil, err
	}
	if err := s.repo.AddRole(ctx, id, r); err != nil {
		s.logger.Error("failed to assign role", "error", err, "user_id", id, "role", r)
		return nil, err
	}
	s.logger.Info("role assigned", "user_id", id, "role", r, "by", session.UserID())
	return s.repo.GetByID(ctx, id, false)
}

func (s *Service) RemoveRole(ctx context.Context, session *identity.Session, id int64, role string) (*User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	r, err := identity.ParseRole(role)
	if err != nil {
		return nil, errors.NewValidationFieldError("role", err.Error(), errors.ErrCodeInvalidRole)
	}
	if _, err := s.repo.RemoveRole(ctx, id, r); err != nil {
		s.logger.Error("failed to remove role", "error", err, "user_id", id, "role", r)
		return nil, err
	}
	s.logger.Info("role removed", "user_id", id, "role", r, "by", session.UserID())
	return s.repo.GetByID(ctx, id, true)
}

func (s *Service) authorize(session *identity.Session) error {
	if !identity.Can(session, identity.ActionManage, identity.Of(identity.KindUser)) {
		s.logger.Warn("user management denied", "user_id", session.UserID())
		return errors.ErrPermissionDenied
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	// deactivated users keep their address
	existing, err := s.repo.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return errors.ErrEmailTaken
	}
	return nil
}
