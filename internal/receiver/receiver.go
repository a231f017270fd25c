package receiver

import (
	"time"

	receiverDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/receiver"
)

// Receiver is a vendor or payee. It can be picked for an expense only when
// it shares at least one category with it.
type Receiver struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Role        *string    `json:"role,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CategoryIDs []int64    `json:"category_ids"`
	AccountIDs  []int64    `json:"account_ids"`
}

func (r *Receiver) IsDeleted() bool {
	return r.DeletedAt != nil
}

// ServesAny reports whether the receiver is linked to any of categoryIDs.
func (r *Receiver) ServesAny(categoryIDs []int64) bool {
	for _, want := range categoryIDs {
		for _, have := range r.CategoryIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

func ToDataModel(r *Receiver) *receiverDatamodel.Receiver {
	return &receiverDatamodel.Receiver{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Role:      r.Role,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}
}

func FromDataModel(row *receiverDatamodel.Receiver, categories []receiverDatamodel.ReceiverCategory, accounts []receiverDatamodel.ReceiverAccount) *Receiver {
	r := &Receiver{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Phone:       row.Phone,
		Role:        row.Role,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		DeletedAt:   row.DeletedAt,
		CategoryIDs: make([]int64, 0, len(categories)),
		AccountIDs:  make([]int64, 0, len(accounts)),
	}
	for _, c := range categories {
		r.CategoryIDs = append(r.CategoryIDs, c.CategoryID)
	}
	for _, a := range accounts {
		r.AccountIDs = append(r.AccountIDs, a.AccountID)
	}
	return r
}
