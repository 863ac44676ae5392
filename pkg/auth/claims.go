package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
// Roles are deliberately absent: they are resolved from user_roles on every bootstrap.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}
