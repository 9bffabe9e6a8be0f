package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserClaims is the access token payload issued on login.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}
