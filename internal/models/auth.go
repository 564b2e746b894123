package models

import "github.com/golang-jwt/jwt/v5"

// OperatorRole scopes what a token holder may change.
type OperatorRole string

const (
	// RoleDispatcher may create, reassign and delete transit records.
	RoleDispatcher OperatorRole = "DISPATCHER"
)

// TokenRequest exchanges an operator key for an access token.
type TokenRequest struct {
	Operator string `json:"operator" validate:"required"`
	Key      string `json:"key" validate:"required"`
}

// TokenResponse returns the issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Operator string       `json:"operator"`
	Role     OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
