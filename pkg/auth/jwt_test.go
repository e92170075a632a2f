package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 24)
	assert.Error(t, err)

	svc, err := NewJWTService("test-secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 168, svc.expirationHrs, "нулевой срок заменяется умолчанием")
}

func TestJWTService_GenerateAndParse(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	tokenString, err := svc.GenerateToken("google-player-1", 1001)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.ParseToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "google-player-1", claims.PlayerID)
	assert.Equal(t, uint(1001), claims.AccountID)
	assert.Equal(t, "gamelink-api", claims.Issuer)
}

func TestJWTService_ParseToken_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService("secret-a", 24)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-b", 24)
	require.NoError(t, err)

	tokenString, err := issuer.GenerateToken("player", 1001)
	require.NoError(t, err)

	_, err = verifier.ParseToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_ParseToken_Expired(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	// Токен с истекшим сроком, подписанный тем же секретом
	claims := &SessionClaims{
		PlayerID:  "player",
		AccountID: 1001,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ParseToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_ParseToken_Malformed(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	_, err = svc.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_ParseToken_RejectsNoneAlgorithm(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &SessionClaims{
		PlayerID:  "player",
		AccountID: 1001,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ParseToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_ParseToken_ZeroAccountID(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	claims := &SessionClaims{
		PlayerID:  "player",
		AccountID: 0,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ParseToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
