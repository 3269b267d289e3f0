package security

import (
	"Beacon/internal/api/config"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withJWTConfig(t *testing.T, secret, issuer string) {
	t.Helper()
	prev := config.Cfg
	config.Cfg = &config.Config{JWT: config.JWTConfig{Secret: secret, Issuer: issuer}}
	t.Cleanup(func() { config.Cfg = prev })
}

func TestGenerateAndValidate(t *testing.T) {
	withJWTConfig(t, "test-secret", "Beacon")

	token, err := GenerateToken(42, []string{"ADMIN"}, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.True(t, claims.HasRole("USER", "ADMIN"))
	assert.False(t, claims.HasRole("USER"))
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	withJWTConfig(t, "one", "Beacon")
	token, err := GenerateToken(1, nil, time.Minute)
	require.NoError(t, err)

	config.Cfg.JWT.Secret = "two"
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	withJWTConfig(t, "secret", "Other")
	token, err := GenerateToken(1, nil, time.Minute)
	require.NoError(t, err)

	config.Cfg.JWT.Issuer = "Beacon"
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	withJWTConfig(t, "secret", "Beacon")
	claims := &UserClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    "Beacon",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractSignature(t *testing.T) {
	sig, err := ExtractSignature("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "c", sig)

	_, err = ExtractSignature("a.b")
	assert.Error(t, err)
}
