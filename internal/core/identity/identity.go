// Package identity holds the resolved caller of a request: the user record,
// its role set and the capability check consulted before every mutation.
package identity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRequester Role = "requester"
	RoleApprover  Role = "approver"
	RolePayer     Role = "payer"
	RoleViewer    Role = "viewer"
)

var AllRoles = []Role{RoleAdmin, RoleRequester, RoleApprover, RolePayer, RoleViewer}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Roles is a sorted set of role tags. The empty set is valid.
type Roles []Role

func NewRoles(roles ...Role) Roles {
	seen := make(map[Role]struct{}, len(roles))
	out := make(Roles, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

func (rs Roles) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// DefaultView picks the landing view for a role set. A user without roles
// lands on the read-only viewer.
func (rs Roles) DefaultView() string {
	for _, r := range []Role{RoleAdmin, RoleApprover, RolePayer, RoleRequester} {
		if rs.Has(r) {
			return string(r)
		}
	}
	return string(RoleViewer)
}

type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// Session is the per-request identity, rebuilt on every request.
type Session struct {
	User  User  `json:"user"`
	Roles Roles `json:"roles"`
}

func NewSession(u User, roles Roles) *Session {
	return &Session{User: u, Roles: NewRoles(roles...)}
}

func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	return s.User.ID
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Roles.Has(RoleAdmin)
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
