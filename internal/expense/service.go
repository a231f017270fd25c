package expense

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/storage"
)

// Repository is the expense store. GetByID resolves soft-deleted rows; every
// other read leaves them out.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filter Filter) ([]*Expense, error)
	Update(ctx context.Context, id int64, patch Patch) error
	// UpdateIfPhase applies patch only while the row is live and still in
	// phase expected. It reports whether a row was written.
	UpdateIfPhase(ctx context.Context, id int64, expected Phase, patch Patch) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// ReceiverDirectory decides whether a receiver may be picked for the given
// categories.
type ReceiverDirectory interface {
	CheckEligible(ctx context.Context, receiverID int64, categoryIDs []int64) error
}

type EventPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	receivers ReceiverDirectory
	store     storage.Store
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, receivers ReceiverDirectory, store storage.Store, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		receivers: receivers,
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, session *identity.Session, dto CreateExpenseDTO) (*Expense, error) {
	if !identity.Can(session, identity.ActionCreate, identity.Expense(session.UserID())) {
		s.logger.Warn("create expense denied", "user_id", session.UserID())
		return nil, errors.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		s.logger.Debug("expense validation failed", "error", err, "user_id", session.UserID())
		return nil, err
	}
	if dto.ReceiverID != nil {
		if err := s.receivers.CheckEligible(ctx, *dto.ReceiverID, dto.CategoryIDs); err != nil {
			return nil, err
		}
	}

	e := NewExpense(session.UserID(), dto, s.now())
	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", session.UserID())
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", e.UserID,
		"amount", e.Amount.StringFixed(2))
	s.publish(ctx, events.EventTypeExpenseCreated, e, session)
	return s.repo.GetByID(ctx, e.ID)
}

func (s *Service) Get(ctx context.Context, session *identity.Session, id int64) (*Expense, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.Can(session, identity.ActionRead, identity.Expense(e.UserID)) {
		s.logger.Warn("unauthorized access to expense", "expense_id", id, "user_id", session.UserID(), "expense_user_id", e.UserID)
		return nil, errors.ErrPermissionDenied
	}
	return e, nil
}

// List applies filter. Sessions that may not see everyone's expenses are
// scoped to their own.
func (s *Service) List(ctx context.Context, session *identity.Session, filter Filter) ([]*Expense, error) {
	if !identity.Can(session, identity.ActionList, identity.Of(identity.KindExpense)) {
		return nil, errors.ErrPermissionDenied
	}
	if !identity.Can(session, identity.ActionListAll, identity.Of(identity.KindExpense)) {
		own := session.UserID()
		filter.RequesterID = &own
	}
	filter.Limit = ClampLimit(filter.Limit, DefaultListLimit)

	expenses, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", session.UserID())
		return nil, err
	}
	return expenses, nil
}

func (s *Service) ListMine(ctx context.Context, session *identity.Session, filter Filter) ([]*Expense, error) {
	own := session.UserID()
	filter.RequesterID = &own
	return s.List(ctx, session, filter)
}

// ListPending returns expenses awaiting a decision.
func (s *Service) ListPending(ctx context.Context, session *identity.Session, limit, offset int) ([]*Expense, error) {
	return s.List(ctx, session, Filter{Phases: []Phase{PhaseCreated}, Limit: limit, Offset: offset})
}

func (s *Service) Recent(ctx context.Context, session *identity.Session, limit int) ([]*Expense, error) {
	return s.List(ctx, session, Filter{Limit: ClampLimit(limit, DefaultRecentLimit)})
}

func (s *Service) Update(ctx context.Context, session *identity.Session, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.Can(session, identity.ActionUpdate, identity.Expense(e.UserID)) {
		s.logger.Warn("update expense denied", "expense_id", id, "user_id", session.UserID())
		return nil, errors.ErrPermissionDenied
	}
	if e.Phase != PhaseCreated {
		s.logger.Warn("cannot edit expense in current phase", "expense_id", id, "phase", e.Phase)
		return nil, errors.ErrInvalidTransition
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	receiverID := e.ReceiverID
	if dto.ReceiverID != nil {
		receiverID = dto.ReceiverID
	}
	categoryIDs := e.CategoryIDs
	if dto.CategoryIDs != nil {
		categoryIDs = *dto.CategoryIDs
	}
	if receiverID != nil && (dto.ReceiverID != nil || dto.CategoryIDs != nil) {
		if err := s.receivers.CheckEligible(ctx, *receiverID, categoryIDs); err != nil {
			return nil, err
		}
	}

	ok, err := s.repo.UpdateIfPhase(ctx, id, PhaseCreated, dto.Patch())
	if err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, id)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense updated", "expense_id", id, "user_id", session.UserID())
	s.publish(ctx, events.EventTypeExpenseUpdated, updated, session)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, session *identity.Session, id int64) error {
	e, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !identity.Can(session, identity.ActionDelete, identity.Expense(e.UserID)) {
		s.logger.Warn("delete expense denied", "expense_id", id, "user_id", session.UserID())
		return errors.ErrPermissionDenied
	}
	if e.Phase != PhaseCreated {
		return errors.ErrInvalidTransition
	}

	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return err
	}
	if !deleted {
		return errors.ErrExpenseNotFound
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", session.UserID())
	s.publish(ctx, events.EventTypeExpenseDeleted, e, session)
	return nil
}

func (s *Service) Approve(ctx context.Context, session *identity.Session, id int64, dto ApproveExpenseDTO) (*Expense, error) {
	return s.transition(ctx, session, id, identity.ActionApprove, events.EventTypeExpenseApproved,
		func(e *Expense) (*Transition, error) {
			return e.Approve(session.UserID(), dto.Comment, s.now())
		})
}

func (s *Service) Reject(ctx context.Context, session *identity.Session, id int64, dto RejectExpenseDTO) (*Expense, error) {
	return s.transition(ctx, session, id, identity.ActionReject, events.EventTypeExpenseRejected,
		func(e *Expense) (*Transition, error) {
			return e.Reject(session.UserID(), dto.Comment, s.now())
		})
}

func (s *Service) Pay(ctx context.Context, session *identity.Session, id int64, dto PayExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	paidAt, err := dto.PaidAt(now)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, session, id, identity.ActionPay, events.EventTypeExpensePaid,
		func(e *Expense) (*Transition, error) {
			return e.Pay(session.UserID(), paidAt, now)
		})
}

// transition loads the expense, lets the domain compute the change and writes
// it with a single UPDATE guarded on the phase the change started from.
func (s *Service) transition(ctx context.Context, session *identity.Session, id int64, action identity.Action, eventType string, apply func(*Expense) (*Transition, error)) (*Expense, error) {
	if !identity.Can(session, action, identity.Of(identity.KindExpense)) {
		s.logger.Warn("expense transition denied", "expense_id", id, "user_id", session.UserID(), "action", action)
		return nil, errors.ErrPermissionDenied
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := apply(e)
	if err != nil {
		s.logger.Warn("expense transition refused", "expense_id", id, "action", action, "error", err)
		return nil, err
	}

	ok, err := s.repo.UpdateIfPhase(ctx, id, t.From, t.Patch)
	if err != nil {
		s.logger.Error("failed to persist expense transition", "error", err, "expense_id", id, "action", action)
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, id)
	}

	s.logger.Info("expense transitioned",
		"expense_id", id,
		"action", action,
		"phase", e.Phase,
		"actor_id", session.UserID())
	s.publish(ctx, eventType, e, session)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UploadQuotation(ctx context.Context, session *identity.Session, id int64, file Upload) (*Expense, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.Can(session, identity.ActionAttachQuote, identity.Expense(e.UserID)) {
		return nil, errors.ErrPermissionDenied
	}
	if e.Phase != PhaseCreated {
		return nil, errors.ErrInvalidTransition
	}

	desc, err := s.store.Upload(ctx, storage.BucketQuotes, file.Filename, file.Body, file.Size, file.ContentType)
	if err != nil {
		s.logger.Error("quotation upload failed", "error", err, "expense_id", id)
		return nil, err
	}

	ok, err := s.repo.UpdateIfPhase(ctx, id, PhaseCreated, Patch{QuotationFile: &desc.URL})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, id)
	}
	s.logger.Info("quotation attached", "expense_id", id, "object", desc.Name, "size", desc.Size)
	return s.repo.GetByID(ctx, id)
}

// UploadReceipt attaches proof of payment once the expense is approved.
func (s *Service) UploadReceipt(ctx context.Context, session *identity.Session, id int64, file Upload) (*Expense, error) {
	if !identity.Can(session, identity.ActionAttachReceipt, identity.Of(identity.KindExpense)) {
		return nil, errors.ErrPermissionDenied
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Phase != PhaseApproved && e.Phase != PhasePaid {
		return nil, errors.ErrInvalidTransition
	}

	desc, err := s.store.Upload(ctx, storage.BucketReceipts, file.Filename, file.Body, file.Size, file.ContentType)
	if err != nil {
		s.logger.Error("receipt upload failed", "error", err, "expense_id", id)
		return nil, err
	}

	if err := s.repo.Update(ctx, id, Patch{ReceiptFile: &desc.URL}); err != nil {
		s.logger.Error("failed to store receipt reference", "error", err, "expense_id", id)
		return nil, err
	}
	s.logger.Info("receipt attached", "expense_id", id, "object", desc.Name, "size", desc.Size)
	return s.repo.GetByID(ctx, id)
}

// load returns a live expense; soft-deleted ones are not found.
func (s *Service) load(ctx context.Context, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeNotFound) {
			s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		}
		return nil, err
	}
	if e.IsDeleted() {
		return nil, errors.ErrExpenseNotFound
	}
	return e, nil
}

// conflict explains a guarded write that matched no row.
func (s *Service) conflict(ctx context.Context, id int64) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Warn("expense changed concurrently", "expense_id", id, "phase", current.Phase)
	return errors.ErrInvalidTransition
}

func (s *Service) publish(ctx context.Context, eventType string, e *Expense, session *identity.Session) {
	if s.publisher == nil {
		return
	}
	event := events.NewExpenseEvent(eventType, e.ID, session.UserID(), string(e.Phase))
	if err := s.publisher.PublishSync(ctx, event); err != nil {
		s.logger.Error("failed to publish expense event", "error", err, "event_type", eventType, "expense_id", e.ID)
	}
}
