package report

import (
	"net/url"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
)

// Range bounds a report by creation date. Both days are inclusive.
type Range struct {
	Start *time.Time `json:"start_date,omitempty"`
	End   *time.Time `json:"end_date,omitempty"`
}

// ParseRange reads start_date and end_date.
func ParseRange(q url.Values) (Range, error) {
	var rg Range
	var err error
	if rg.Start, err = parseDay(q, "start_date"); err != nil {
		return Range{}, err
	}
	if rg.End, err = parseDay(q, "end_date"); err != nil {
		return Range{}, err
	}
	if rg.Start != nil && rg.End != nil && rg.End.Before(*rg.Start) {
		return Range{}, errors.NewValidationFieldError("end_date", "end_date is before start_date", errors.ErrCodeInvalidDate)
	}
	return rg, nil
}

func parseDay(q url.Values, name string) (*time.Time, error) {
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

type Dashboard struct {
	Range       Range             `json:"range"`
	Summary     Summary           `json:"summary"`
	ByMonth     []MonthBucket     `json:"by_month"`
	ByCategory  []CategoryBucket  `json:"by_category"`
	ByRequester []RequesterBucket `json:"by_requester"`
}
