package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-registry/internal/model"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestParse_Valid(t *testing.T) {
	userID := uuid.New()
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID.String(), "operator"))

	principal, err := NewParser(testSecret).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, model.UserRoleOperator, principal.Role)
	assert.True(t, principal.CanRegisterVehicles())
}

func TestParse_Rejected(t *testing.T) {
	userID := uuid.NewString()
	expired := validClaims(userID, "ADMIN")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(userID, "ADMIN"))},
		{name: "wrong algorithm", token: sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(userID, "ADMIN"))},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{name: "subject not uuid", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("42", "ADMIN"))},
		{name: "unknown role", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID, "ROOT"))},
	}

	parser := NewParser(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := parser.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, principal)
		})
	}
}
