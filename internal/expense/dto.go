package expense

import (
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit   = 50
	DefaultRecentLimit = 10
	MaxListLimit       = 100
)

type CreateExpenseDTO struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Vendor        *string         `json:"vendor,omitempty"`
	ReceiverID    *int64          `json:"receiver_id,omitempty"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Priority      *string         `json:"priority,omitempty"`
	Comments      *string         `json:"comments,omitempty"`
	CategoryIDs   []int64         `json:"category_ids"`
	AccountIDs    []int64         `json:"account_ids"`
}

func (dto CreateExpenseDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("description", dto.Description).Required().MaxLength(500)
	v.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("vendor", dto.Vendor).MaxLength(200)
	v.Field("payment_method", dto.PaymentMethod).MaxLength(50)
	v.Field("priority", dto.Priority).OneOf(Priorities...)
	v.Field("comments", dto.Comments).MaxLength(1000)
	v.Field("category_ids", dto.CategoryIDs).Required()
	v.Field("account_ids", dto.AccountIDs).Required()
	if dto.ReceiverID != nil {
		v.Field("receiver_id", *dto.ReceiverID).Required()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateExpenseDTO is a partial edit by the requester while the expense is
// still created.
type UpdateExpenseDTO struct {
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	ReceiverID    *int64           `json:"receiver_id,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Priority      *string          `json:"priority,omitempty"`
	Comments      *string          `json:"comments,omitempty"`
	CategoryIDs   *[]int64         `json:"category_ids,omitempty"`
	AccountIDs    *[]int64         `json:"account_ids,omitempty"`
}

func (dto UpdateExpenseDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Description != nil {
		v.Field("description", dto.Description).Required().MaxLength(500)
	}
	v.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("vendor", dto.Vendor).MaxLength(200)
	v.Field("payment_method", dto.PaymentMethod).MaxLength(50)
	v.Field("priority", dto.Priority).OneOf(Priorities...)
	v.Field("comments", dto.Comments).MaxLength(1000)
	if dto.CategoryIDs != nil {
		v.Field("category_ids", *dto.CategoryIDs).Required()
	}
	if dto.AccountIDs != nil {
		v.Field("account_ids", *dto.AccountIDs).Required()
	}
	if dto.ReceiverID != nil {
		v.Field("receiver_id", *dto.ReceiverID).Required()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto UpdateExpenseDTO) Patch() Patch {
	p := Patch{
		Description:   dto.Description,
		Vendor:        dto.Vendor,
		ReceiverID:    dto.ReceiverID,
		PaymentMethod: dto.PaymentMethod,
		Priority:      dto.Priority,
		Comments:      dto.Comments,
		CategoryIDs:   dto.CategoryIDs,
		AccountIDs:    dto.AccountIDs,
	}
	if dto.Description != nil {
		d := strings.TrimSpace(*dto.Description)
		p.Description = &d
	}
	if dto.Amount != nil {
		a := dto.Amount.Round(2)
		p.Amount = &a
	}
	return p
}

type ApproveExpenseDTO struct {
	Comment *string `json:"comment,omitempty"`
}

type RejectExpenseDTO struct {
	Comment string `json:"comment"`
}

type PayExpenseDTO struct {
	PaymentDate *string `json:"payment_date,omitempty"`
}

func (dto PayExpenseDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("payment_date", dto.PaymentDate).Date()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// PaidAt is the payment date at UTC midnight, today when absent.
func (dto PayExpenseDTO) PaidAt(now time.Time) (time.Time, error) {
	if dto.PaymentDate == nil || strings.TrimSpace(*dto.PaymentDate) == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := validation.ParseDate(*dto.PaymentDate)
	if err != nil {
		return time.Time{}, errors.NewValidationFieldError("payment_date", "payment_date must be YYYY-MM-DD", errors.ErrCodeInvalidDate)
	}
	return t, nil
}

// Upload is a file on its way to object storage.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Filter narrows an expense listing. Zero values mean "no constraint".
// Date bounds are whole days and both inclusive.
type Filter struct {
	Phases      []Phase
	RequesterID *int64
	StartDate   *time.Time
	EndDate     *time.Time
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	Query       string
	Category    string
	Limit       int
	Offset      int
}

// ParseFilter reads listing query parameters.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{Limit: DefaultListLimit}

	for _, raw := range q["phase"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			p, err := ParsePhase(part)
			if err != nil {
				return Filter{}, err
			}
			f.Phases = append(f.Phases, p)
		}
	}

	if raw := q.Get("requester_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, errors.NewValidationFieldError("requester_id", "invalid requester_id", errors.ErrCodeValidationFailed)
		}
		f.RequesterID = &id
	}

	var err error
	if f.StartDate, err = parseDateParam(q, "start_date"); err != nil {
		return Filter{}, err
	}
	if f.EndDate, err = parseDateParam(q, "end_date"); err != nil {
		return Filter{}, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return Filter{}, errors.NewValidationFieldError("end_date", "end_date is before start_date", errors.ErrCodeInvalidDate)
	}

	if f.MinAmount, err = parseAmountParam(q, "min_amount"); err != nil {
		return Filter{}, err
	}
	if f.MaxAmount, err = parseAmountParam(q, "max_amount"); err != nil {
		return Filter{}, err
	}

	f.Query = strings.TrimSpace(q.Get("q"))
	f.Category = strings.TrimSpace(q.Get("category"))

	if f.Limit, err = parseIntParam(q, "limit", DefaultListLimit); err != nil {
		return Filter{}, err
	}
	if f.Offset, err = parseIntParam(q, "offset", 0); err != nil {
		return Filter{}, err
	}
	f.Limit = ClampLimit(f.Limit, DefaultListLimit)
	return f, nil
}

// ClampLimit applies the default for non-positive values and caps at
// MaxListLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func parseDateParam(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := validation.ParseDate(raw)
	if err != nil {
		return nil, errors.NewValidationFieldError(name, name+" must be YYYY-MM-DD", errors.ErrCodeInvalidDate)
	}
	return &t, nil
}

func parseAmountParam(q url.Values, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, errors.NewValidationFieldError(name, "invalid "+name, errors.ErrCodeInvalidAmount)
	}
	return &d, nil
}

func parseIntParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewValidationFieldError(name, "invalid "+name, errors.ErrCodeValidationFailed)
	}
	return n, nil
}

type ExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
