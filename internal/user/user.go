package user

import (
	"strings"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type User struct {
	identity.User
	Roles identity.Roles `json:"roles"`
}

func (u *User) Session() *identity.Session {
	return identity.NewSession(u.User, u.Roles)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		DeletedAt: u.DeletedAt,
	}
}

func FromDataModel(u *userDatamodel.User, roles []userDatamodel.UserRole) *User {
	tags := make([]identity.Role, 0, len(roles))
	for _, r := range roles {
		tags = append(tags, identity.Role(r.Role))
	}
	return &User{
		User: identity.User{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
			DeletedAt: u.DeletedAt,
		},
		Roles: identity.NewRoles(tags...),
	}
}
