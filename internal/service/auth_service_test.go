package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
)

func newTestAuthService(t *testing.T, key string) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		OperatorKeyHash:   string(hash),
	})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService(t, "depot-key")

	resp, err := svc.IssueToken(context.Background(), models.TokenRequest{Operator: "night-shift", Key: "depot-key"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "night-shift", claims.Operator)
	assert.Equal(t, models.RoleDispatcher, claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceRejectsWrongKey(t *testing.T) {
	svc := newTestAuthService(t, "depot-key")

	_, err := svc.IssueToken(context.Background(), models.TokenRequest{Operator: "night-shift", Key: "guess"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidatesPayload(t *testing.T) {
	svc := newTestAuthService(t, "depot-key")

	_, err := svc.IssueToken(context.Background(), models.TokenRequest{Key: "depot-key"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceDisabledWithoutHash(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	_, err := svc.IssueToken(context.Background(), models.TokenRequest{Operator: "a", Key: "b"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newTestAuthService(t, "depot-key")
	issued := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	resp, err := svc.IssueToken(context.Background(), models.TokenRequest{Operator: "op", Key: "depot-key"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	svc := newTestAuthService(t, "depot-key")
	claims := &models.JWTClaims{
		Operator: "op",
		Role:     models.RoleDispatcher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
