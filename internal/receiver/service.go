package receiver

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*Receiver, error)
	// GetByID resolves soft-deleted receivers too.
	GetByID(ctx context.Context, id int64) (*Receiver, error)
	ByCategories(ctx context.Context, categoryIDs []int64) ([]*Receiver, error)
	Create(ctx context.Context, r *Receiver) error
	Update(ctx context.Context, id int64, patch Patch, categoryIDs, accountIDs *[]int64) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
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

func (s *Service) List(ctx context.Context, session *identity.Session) ([]*Receiver, error) {
	if err := s.authorize(session, identity.ActionList); err != nil {
		return nil, err
	}
	receivers, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list receivers", "error", err)
		return nil, err
	}
	return receivers, nil
}

func (s *Service) Get(ctx context.Context, session *identity.Session, id int64) (*Receiver, error) {
	if err := s.authorize(session, identity.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ByCategories returns every live receiver linked to at least one of the
// given categories, each once, ordered by name.
func (s *Service) ByCategories(ctx context.Context, session *identity.Session, categoryIDs []int64) ([]*Receiver, error) {
	if err := s.authorize(session, identity.ActionList); err != nil {
		return nil, err
	}
	if len(categoryIDs) == 0 {
		return []*Receiver{}, nil
	}
	receivers, err := s.repo.ByCategories(ctx, categoryIDs)
	if err != nil {
		s.logger.Error("failed to list receivers by category", "error", err, "category_ids", categoryIDs)
		return nil, err
	}
	return receivers, nil
}

func (s *Service) Create(ctx context.Context, session *identity.Session, dto CreateReceiverDTO) (*Receiver, error) {
	if err := s.authorize(session, identity.ActionManage); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r := &Receiver{
		Name:        dto.Name,
		Email:       dto.Email,
		Phone:       dto.Phone,
		Role:        dto.Role,
		CreatedBy:   session.UserID(),
		CreatedAt:   time.Now().UTC(),
		CategoryIDs: dto.CategoryIDs,
		AccountIDs:  dto.AccountIDs,
	}
	if r.AccountIDs == nil {
		r.AccountIDs = []int64{}
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create receiver", "error", err, "name", dto.Name)
		return nil, err
	}
	s.logger.Info("receiver created", "receiver_id", r.ID, "by", session.UserID())
	return s.repo.GetByID(ctx, r.ID)
}

func (s *Service) Update(ctx context.Context, session *identity.Session, id int64, dto UpdateReceiverDTO) (*Receiver, error) {
	if err := s.authorize(session, identity.ActionManage); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsDeleted() {
		return nil, errors.ErrReceiverNotFound
	}
	if dto.Name != nil && *dto.Name != current.Name {
		return nil, errors.NewValidationFieldError("name", "name cannot be changed", errors.ErrCodeImmutableField)
	}

	patch := Patch{Email: dto.Email, Phone: dto.Phone, Role: dto.Role}
	if err := s.repo.Update(ctx, id, patch, dto.CategoryIDs, dto.AccountIDs); err != nil {
		s.logger.Error("failed to update receiver", "error", err, "receiver_id", id)
		return nil, err
	}
	s.logger.Info("receiver updated", "receiver_id", id, "by", session.UserID())
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, session *identity.Session, id int64) error {
	if err := s.authorize(session, identity.ActionManage); err != nil {
		return err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete receiver", "error", err, "receiver_id", id)
		return err
	}
	if !deleted {
		return errors.ErrReceiverNotFound
	}
	s.logger.Info("receiver deleted", "receiver_id", id, "by", session.UserID())
	return nil
}

// CheckEligible is used by the expense flow: the receiver must be live and
// linked to one of the expense's categories.
func (s *Service) CheckEligible(ctx context.Context, receiverID int64, categoryIDs []int64) error {
	r, err := s.repo.GetByID(ctx, receiverID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return errors.NewValidationFieldError("receiver_id", "receiver does not exist", errors.ErrCodeInvalidReceiver)
		}
		return err
	}
	if r.IsDeleted() {
		return errors.NewValidationFieldError("receiver_id", "receiver has been deleted", errors.ErrCodeInvalidReceiver)
	}
	if !r.ServesAny(categoryIDs) {
		return errors.NewValidationFieldError("receiver_id", "receiver is not linked to any selected category", errors.ErrCodeInvalidReceiver)
	}
	return nil
}

func (s *Service) authorize(session *identity.Session, action identity.Action) error {
	if !identity.Can(session, action, identity.Of(identity.KindReceiver)) {
		s.logger.Warn("receiver access denied", "user_id", session.UserID(), "action", action)
		return errors.ErrPermissionDenied
	}
	return nil
}
