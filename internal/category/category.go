package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
)

type Category struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (c *Category) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Account belongs to exactly one category.
type Account struct {
	ID          int64      `json:"id"`
	CategoryID  int64      `json:"category_id"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

func ToDataModel(c *Category) *categoryDatamodel.Category {
	return &categoryDatamodel.Category{
		ID:          c.ID,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		DeletedAt:   c.DeletedAt,
	}
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	return &Category{
		ID:          c.ID,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		DeletedAt:   c.DeletedAt,
	}
}

func AccountToDataModel(a *Account) *categoryDatamodel.Account {
	return &categoryDatamodel.Account{
		ID:          a.ID,
		CategoryID:  a.CategoryID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		DeletedAt:   a.DeletedAt,
	}
}

func AccountFromDataModel(a *categoryDatamodel.Account) *Account {
	return &Account{
		ID:          a.ID,
		CategoryID:  a.CategoryID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		DeletedAt:   a.DeletedAt,
	}
}
