package report

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

// Loader is the read model behind reports.
type Loader interface {
	Load(ctx context.Context, rg Range) ([]Record, error)
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type Service struct {
	loader Loader
	logger *slog.Logger
}

func NewService(loader Loader, logger *slog.Logger) *Service {
	return &Service{
		loader: loader,
		logger: logger,
	}
}

func (s *Service) Summary(ctx context.Context, session *identity.Session, rg Range) (*Summary, error) {
	records, err := s.load(ctx, session, rg)
	if err != nil {
		return nil, err
	}
	summary := Summarize(records)
	return &summary, nil
}

func (s *Service) Dashboard(ctx context.Context, session *identity.Session, rg Range) (*Dashboard, error) {
	records, err := s.load(ctx, session, rg)
	if err != nil {
		return nil, err
	}

	requesters := ByRequester(records)
	if len(requesters) > 0 {
		names, err := s.loader.UserNames(ctx, RequesterIDs(records))
		if err != nil {
			s.logger.Error("failed to resolve requester names", "error", err)
			return nil, err
		}
		for i := range requesters {
			requesters[i].Name = names[requesters[i].UserID]
		}
	}

	return &Dashboard{
		Range:       rg,
		Summary:     Summarize(records),
		ByMonth:     ByMonth(records),
		ByCategory:  ByCategory(records),
		ByRequester: requesters,
	}, nil
}

func (s *Service) load(ctx context.Context, session *identity.Session, rg Range) ([]Record, error) {
	if session == nil {
		return nil, errors.ErrInvalidToken
	}
	if !identity.Can(session, identity.ActionRead, identity.Of(identity.KindReport)) {
		s.logger.Warn("report access denied", "user_id", session.UserID())
		return nil, errors.ErrPermissionDenied
	}

	records, err := s.loader.Load(ctx, rg)
	if err != nil {
		s.logger.Error("failed to load report records", "error", err)
		return nil, err
	}
	return records, nil
}
