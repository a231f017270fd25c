package category

import "github.com/frahmantamala/expense-approval/internal/core/common/validation"

type CategoryDTO struct {
	Description string `json:"description"`
}

func (dto CategoryDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("description", dto.Description).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CreateAccountDTO struct {
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
}

func (dto CreateAccountDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("category_id", dto.CategoryID).Required()
	v.Field("description", dto.Description).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateAccountDTO struct {
	CategoryID  *int64  `json:"category_id,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (dto UpdateAccountDTO) Validate() error {
	v := validation.NewValidator()
	if dto.CategoryID != nil {
		v.Field("category_id", *dto.CategoryID).Required()
	}
	if dto.Description != nil {
		v.Field("description", dto.Description).Required().MaxLength(200)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

type AccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}
