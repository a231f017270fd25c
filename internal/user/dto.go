package user

import (
	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type CreateUserDTO struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (dto CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(120)
	v.Field("email", dto.Email).Required().Email().MaxLength(254)
	v.Field("roles", dto.Roles).Custom(validRoles)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateUserDTO struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", dto.Name).Required().MaxLength(120)
	}
	if dto.Email != nil {
		v.Field("email", dto.Email).Required().Email().MaxLength(254)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RoleDTO struct {
	Role string `json:"role"`
}

type UsersResponse struct {
	Users []*User `json:"users"`
}

func validRoles(value interface{}) *errors.AppError {
	roles, _ := value.([]string)
	for _, r := range roles {
		if _, err := identity.ParseRole(r); err != nil {
			return errors.NewValidationFieldError("roles", err.Error(), errors.ErrCodeInvalidRole)
		}
	}
	return nil
}
