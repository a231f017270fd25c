package category

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type RepositoryAPI interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, id int64, description string) error
	DeleteCategory(ctx context.Context, id int64) (bool, error)

	ListAccounts(ctx context.Context, categoryID *int64) ([]*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	CreateAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, id int64, categoryID *int64, description *string) error
	DeleteAccount(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ListCategories(ctx context.Context, session *identity.Session) ([]*Category, error) {
	if err := s.authorize(session, identity.ActionList, identity.KindCategory); err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, err
	}
	s.logger.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, session *identity.Session, id int64) (*Category, error) {
	if err := s.authorize(session, identity.ActionRead, identity.KindCategory); err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, session *identity.Session, dto CategoryDTO) (*Category, error) {
	if err := s.authorize(session, identity.ActionManage, identity.KindCategory); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c := &Category{Description: dto.Description, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		s.logger.Error("failed to create category", "error", err)
		return nil, err
	}
	s.logger.Info("category created", "category_id", c.ID, "by", session.UserID())
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, session *identity.Session, id int64, dto CategoryDTO) (*Category, error) {
	if err := s.authorize(session, identity.ActionManage, identity.KindCategory); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCategory(ctx, id, dto.Description); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, err
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) DeleteCategory(ctx context.Context, session *identity.Session, id int64) error {
	if err := s.authorize(session, identity.ActionManage, identity.KindCategory); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete category", "error", err, "category_id", id)
		return err
	}
	if !deleted {
		return errors.ErrCategoryNotFound
	}
	s.logger.Info("category deleted", "category_id", id, "by", session.UserID())
	return nil
}

// ListAccounts optionally narrows to one category's accounts.
func (s *Service) ListAccounts(ctx context.Context, session *identity.Session, categoryID *int64) ([]*Account, error) {
	if err := s.authorize(session, identity.ActionList, identity.KindAccount); err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListAccounts(ctx, categoryID)
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err)
		return nil, err
	}
	return accounts, nil
}

func (s *Service) GetAccount(ctx context.Context, session *identity.Session, id int64) (*Account, error) {
	if err := s.authorize(session, identity.ActionRead, identity.KindAccount); err != nil {
		return nil, err
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) CreateAccount(ctx context.Context, session *identity.Session, dto CreateAccountDTO) (*Account, error) {
	if err := s.authorize(session, identity.ActionManage, identity.KindAccount); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureLiveCategory(ctx, dto.CategoryID); err != nil {
		return nil, err
	}

	a := &Account{CategoryID: dto.CategoryID, Description: dto.Description, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		s.logger.Error("failed to create account", "error", err, "category_id", dto.CategoryID)
		return nil, err
	}
	s.logger.Info("account created", "account_id", a.ID, "category_id", a.CategoryID, "by", session.UserID())
	return a, nil
}

func (s *Service) UpdateAccount(ctx context.Context, session *identity.Session, id int64, dto UpdateAccountDTO) (*Account, error) {
	if err := s.authorize(session, identity.ActionManage, identity.KindAccount); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.CategoryID != nil {
		if err := s.ensureLiveCategory(ctx, *dto.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateAccount(ctx, id, dto.CategoryID, dto.Description); err != nil {
		s.logger.Error("failed to update account", "error", err, "account_id", id)
		return nil, err
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) DeleteAccount(ctx context.Context, session *identity.Session, id int64) error {
	if err := s.authorize(session, identity.ActionManage, identity.KindAccount); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteAccount(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete account", "error", err, "account_id", id)
		return err
	}
	if !deleted {
		return errors.ErrAccountNotFound
	}
	s.logger.Info("account deleted", "account_id", id, "by", session.UserID())
	return nil
}

func (s *Service) ensureLiveCategory(ctx context.Context, id int64) error {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return errors.NewValidationFieldError("category_id", "category does not exist", errors.ErrCodeInvalidCategory)
		}
		return err
	}
	if c.IsDeleted() {
		return errors.NewValidationFieldError("category_id", "category has been deleted", errors.ErrCodeInvalidCategory)
	}
	return nil
}

func (s *Service) authorize(session *identity.Session, action identity.Action, kind identity.Kind) error {
	if !identity.Can(session, action, identity.Of(kind)) {
		s.logger.Warn("catalog access denied", "user_id", session.UserID(), "action", action, "kind", kind)
		return errors.ErrPermissionDenied
	}
	return nil
}
