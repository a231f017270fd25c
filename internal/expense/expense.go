package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

type Phase string

const (
	PhaseCreated  Phase = "created"
	PhaseApproved Phase = "approved"
	PhaseRejected Phase = "rejected"
	PhasePaid     Phase = "paid"
)

// PhasePending is accepted on input and means created.
const PhasePending = "pending"

var Phases = []Phase{PhaseCreated, PhaseApproved, PhaseRejected, PhasePaid}

func ParsePhase(s string) (Phase, error) {
	p := strings.ToLower(strings.TrimSpace(s))
	if p == PhasePending {
		return PhaseCreated, nil
	}
	for _, known := range Phases {
		if Phase(p) == known {
			return known, nil
		}
	}
	return "", errors.NewValidationFieldError("phase", "unknown phase "+s, errors.ErrCodeValidationFailed)
}

// Terminal phases accept no further transition.
func (p Phase) Terminal() bool {
	return p == PhaseRejected || p == PhasePaid
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type Expense struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Phase            Phase           `json:"phase"`
	Vendor           *string         `json:"vendor,omitempty"`
	ReceiverID       *int64          `json:"receiver_id,omitempty"`
	PaymentMethod    *string         `json:"payment_method,omitempty"`
	Priority         *string         `json:"priority,omitempty"`
	Comments         *string         `json:"comments,omitempty"`
	ApproverComments *string         `json:"approver_comments,omitempty"`
	ApproverID       *int64          `json:"approver_id"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	PayerID          *int64          `json:"payer_id"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	QuotationFile    *string         `json:"quotation_file,omitempty"`
	ReceiptFile      *string         `json:"receipt_file,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
	CategoryIDs      []int64         `json:"category_ids"`
	AccountIDs       []int64         `json:"account_ids"`
}

func NewExpense(userID int64, dto CreateExpenseDTO, now time.Time) *Expense {
	return &Expense{
		UserID:        userID,
		Description:   strings.TrimSpace(dto.Description),
		Amount:        dto.Amount.Round(2),
		Phase:         PhaseCreated,
		Vendor:        dto.Vendor,
		ReceiverID:    dto.ReceiverID,
		PaymentMethod: dto.PaymentMethod,
		Priority:      dto.Priority,
		Comments:      dto.Comments,
		CreatedAt:     now,
		UpdatedAt:     now,
		CategoryIDs:   dto.CategoryIDs,
		AccountIDs:    dto.AccountIDs,
	}
}

func (e *Expense) IsDeleted() bool {
	return e.DeletedAt != nil
}

// Transition is the outcome of a phase change: the phase the row must still
// hold for the write to apply, and the columns to write.
type Transition struct {
	From  Phase
	Patch Patch
}

func (e *Expense) Approve(approverID int64, comment *string, at time.Time) (*Transition, error) {
	if e.Phase != PhaseCreated {
		return nil, errors.ErrInvalidTransition
	}

	comment = trimmed(comment)
	e.Phase = PhaseApproved
	e.ApproverID = &approverID
	e.ApprovedAt = &at
	e.ApproverComments = comment
	e.UpdatedAt = at

	phase := PhaseApproved
	return &Transition{
		From: PhaseCreated,
		Patch: Patch{
			Phase:            &phase,
			ApproverID:       &approverID,
			ApprovedAt:       &at,
			ApproverComments: comment,
		},
	}, nil
}

// Reject needs a non-blank comment; it is stored apart from the requester's
// own comments.
func (e *Expense) Reject(approverID int64, comment string, at time.Time) (*Transition, error) {
	c := trimmed(&comment)
	if c == nil {
		return nil, errors.NewValidationFieldError("comment", "a comment is required to reject an expense", errors.ErrCodeCommentRequired)
	}
	if e.Phase != PhaseCreated {
		return nil, errors.ErrInvalidTransition
	}

	e.Phase = PhaseRejected
	e.ApproverID = &approverID
	e.ApprovedAt = &at
	e.ApproverComments = c
	e.UpdatedAt = at

	phase := PhaseRejected
	return &Transition{
		From: PhaseCreated,
		Patch: Patch{
			Phase:            &phase,
			ApproverID:       &approverID,
			ApprovedAt:       &at,
			ApproverComments: c,
		},
	}, nil
}

// Pay records the payment date apart from at, the moment it was recorded.
func (e *Expense) Pay(payerID int64, paidAt, at time.Time) (*Transition, error) {
	if e.Phase != PhaseApproved {
		return nil, errors.ErrInvalidTransition
	}

	e.Phase = PhasePaid
	e.PayerID = &payerID
	e.PaidAt = &paidAt
	e.UpdatedAt = at

	phase := PhasePaid
	return &Transition{
		From: PhaseApproved,
		Patch: Patch{
			Phase:   &phase,
			PayerID: &payerID,
			PaidAt:  &paidAt,
		},
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Patch lists the columns of a partial update. Nil fields are left alone.
// Link sets, when present, replace the stored ones.
type Patch struct {
	Description   *string
	Amount        *decimal.Decimal
	Vendor        *string
	ReceiverID    *int64
	PaymentMethod *string
	Priority      *string
	Comments      *string

	Phase            *Phase
	ApproverID       *int64
	ApprovedAt       *time.Time
	ApproverComments *string
	PayerID          *int64
	PaidAt           *time.Time

	QuotationFile *string
	ReceiptFile   *string

	CategoryIDs *[]int64
	AccountIDs  *[]int64
}

// Columns maps the scalar part of the patch to column names.
func (p Patch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.Vendor != nil {
		cols["vendor"] = *p.Vendor
	}
	if p.ReceiverID != nil {
		cols["receiver_id"] = *p.ReceiverID
	}
	if p.PaymentMethod != nil {
		cols["payment_method"] = *p.PaymentMethod
	}
	if p.Priority != nil {
		cols["priority"] = *p.Priority
	}
	if p.Comments != nil {
		cols["comments"] = *p.Comments
	}
	if p.Phase != nil {
		cols["phase"] = string(*p.Phase)
	}
	if p.ApproverID != nil {
		cols["approver_id"] = *p.ApproverID
	}
	if p.ApprovedAt != nil {
		cols["approved_at"] = *p.ApprovedAt
	}
	if p.ApproverComments != nil {
		cols["approver_comments"] = *p.ApproverComments
	}
	if p.PayerID != nil {
		cols["payer_id"] = *p.PayerID
	}
	if p.PaidAt != nil {
		cols["paid_at"] = *p.PaidAt
	}
	if p.QuotationFile != nil {
		cols["quotation_file"] = *p.QuotationFile
	}
	if p.ReceiptFile != nil {
		cols["receipt_file"] = *p.ReceiptFile
	}
	return cols
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:               e.ID,
		UserID:           e.UserID,
		Description:      e.Description,
		Amount:           e.Amount,
		Phase:            string(e.Phase),
		Vendor:           e.Vendor,
		ReceiverID:       e.ReceiverID,
		PaymentMethod:    e.PaymentMethod,
		Priority:         e.Priority,
		Comments:         e.Comments,
		ApproverComments: e.ApproverComments,
		ApproverID:       e.ApproverID,
		ApprovedAt:       e.ApprovedAt,
		PayerID:          e.PayerID,
		PaidAt:           e.PaidAt,
		QuotationFile:    e.QuotationFile,
		ReceiptFile:      e.ReceiptFile,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		DeletedAt:        e.DeletedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense, categories []expenseDatamodel.ExpenseCategory, accounts []expenseDatamodel.ExpenseAccount) *Expense {
	out := &Expense{
		ID:               e.ID,
		UserID:           e.UserID,
		Description:      e.Description,
		Amount:           e.Amount,
		Phase:            Phase(e.Phase),
		Vendor:           e.Vendor,
		ReceiverID:       e.ReceiverID,
		PaymentMethod:    e.PaymentMethod,
		Priority:         e.Priority,
		Comments:         e.Comments,
		ApproverComments: e.ApproverComments,
		ApproverID:       e.ApproverID,
		ApprovedAt:       e.ApprovedAt,
		PayerID:          e.PayerID,
		PaidAt:           e.PaidAt,
		QuotationFile:    e.QuotationFile,
		ReceiptFile:      e.ReceiptFile,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		DeletedAt:        e.DeletedAt,
		CategoryIDs:      make([]int64, 0, len(categories)),
		AccountIDs:       make([]int64, 0, len(accounts)),
	}
	for _, c := range categories {
		out.CategoryIDs = append(out.CategoryIDs, c.CategoryID)
	}
	for _, a := range accounts {
		out.AccountIDs = append(out.AccountIDs, a.AccountID)
	}
	return out
}
