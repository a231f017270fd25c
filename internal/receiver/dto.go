package receiver

import (
	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
)

type CreateReceiverDTO struct {
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Role        *string `json:"role,omitempty"`
	CategoryIDs []int64 `json:"category_ids"`
	AccountIDs  []int64 `json:"account_ids"`
}

func (dto CreateReceiverDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("email", dto.Email).Email().MaxLength(255)
	v.Field("phone", dto.Phone).MaxLength(50)
	v.Field("role", dto.Role).MaxLength(100)
	v.Field("category_ids", dto.CategoryIDs).Required().Custom(positiveIDs(errors.ErrCodeInvalidCategory))
	v.Field("account_ids", dto.AccountIDs).Custom(positiveIDs(errors.ErrCodeInvalidAccount))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateReceiverDTO is a partial update. Name is accepted only when it
// matches the stored name; link sets are replaced when present.
type UpdateReceiverDTO struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Role        *string  `json:"role,omitempty"`
	CategoryIDs *[]int64 `json:"category_ids,omitempty"`
	AccountIDs  *[]int64 `json:"account_ids,omitempty"`
}

func (dto UpdateReceiverDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Email().MaxLength(255)
	v.Field("phone", dto.Phone).MaxLength(50)
	v.Field("role", dto.Role).MaxLength(100)
	if dto.CategoryIDs != nil {
		v.Field("category_ids", *dto.CategoryIDs).Required().Custom(positiveIDs(errors.ErrCodeInvalidCategory))
	}
	if dto.AccountIDs != nil {
		v.Field("account_ids", *dto.AccountIDs).Custom(positiveIDs(errors.ErrCodeInvalidAccount))
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Patch carries the scalar columns of an update.
type Patch struct {
	Email *string
	Phone *string
	Role  *string
}

func (p Patch) Empty() bool {
	return p.Email == nil && p.Phone == nil && p.Role == nil
}

type ReceiversResponse struct {
	Receivers []*Receiver `json:"receivers"`
}

func positiveIDs(code errors.ErrorCode) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		ids, _ := value.([]int64)
		for _, id := range ids {
			if id <= 0 {
				return errors.NewValidationError("ids must be positive", code)
			}
		}
		return nil
	}
}
