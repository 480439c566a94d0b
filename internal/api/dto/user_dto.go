package dto

import (
	"errors"
	"strings"
)

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// UserCreateRequest payload for new accounts.
type UserCreateRequest struct {
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsModerator bool    `json:"is_moderator"`
}

// Validate reports missing or unusable fields.
func (r UserCreateRequest) Validate() error {
	switch {
	case r.Email == nil || strings.TrimSpace(*r.Email) == "":
		return errors.New("missing field `email`")
	case r.Password == nil || *r.Password == "":
		return errors.New("missing field `password`")
	case len(*r.Password) > maxPasswordBytes:
		return errors.New("password longer than 72 bytes")
	case r.FirstName == nil:
		return errors.New("missing field `first_name`")
	case r.LastName == nil:
		return errors.New("missing field `last_name`")
	}
	return nil
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Validate reports missing fields.
func (r LoginRequest) Validate() error {
	switch {
	case r.Email == nil:
		return errors.New("missing field `email`")
	case r.Password == nil:
		return errors.New("missing field `password`")
	}
	return nil
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is returned when a resource is created.
type IDResponse struct {
	ID string `json:"_id"`
}
