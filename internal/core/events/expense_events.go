package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseCreated  = "expense.created"
	EventTypeExpenseUpdated  = "expense.updated"
	EventTypeExpenseDeleted  = "expense.deleted"
	EventTypeExpenseApproved = "expense.approved"
	EventTypeExpenseRejected = "expense.rejected"
	EventTypeExpensePaid     = "expense.paid"
)

var ExpenseEventTypes = []string{
	EventTypeExpenseCreated,
	EventTypeExpenseUpdated,
	EventTypeExpenseDeleted,
	EventTypeExpenseApproved,
	EventTypeExpenseRejected,
	EventTypeExpensePaid,
}

type ExpenseEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	ActorID   int64  `json:"actor_id"`
	Phase     string `json:"phase"`
}

func NewExpenseEvent(eventType string, expenseID, actorID int64, phase string) *ExpenseEvent {
	return &ExpenseEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"actor_id":   actorID,
				"phase":      phase,
			},
		},
		ExpenseID: expenseID,
		ActorID:   actorID,
		Phase:     phase,
	}
}

// AuditLogHandler writes one structured line per expense event.
func AuditLogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
		}
		if e, ok := event.(*ExpenseEvent); ok {
			attrs = append(attrs, "expense_id", e.ExpenseID, "actor_id", e.ActorID, "phase", e.Phase)
		}
		logger.InfoContext(ctx, "audit", attrs...)
		return nil
	}
}
