package auth

import (
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
)

type RequestCodeDTO struct {
	Email string `json:"email"`
}

func (d RequestCodeDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type VerifyCodeDTO struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (d VerifyCodeDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("code", d.Code).Required().MaxLength(codeDigits)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SessionResponse struct {
	User        identity.User `json:"user"`
	Roles       []string      `json:"roles"`
	DefaultView string        `json:"default_view"`
}

func NewSessionResponse(s *identity.Session) SessionResponse {
	return SessionResponse{
		User:        s.User,
		Roles:       s.Roles.Strings(),
		DefaultView: s.Roles.DefaultView(),
	}
}

type LoginResponse struct {
	AuthTokens
	Session SessionResponse `json:"session"`
}
