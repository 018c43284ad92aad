package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT claims issued by the identity service
type JWTClaims struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenInfo represents a validated token
type TokenInfo struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}
