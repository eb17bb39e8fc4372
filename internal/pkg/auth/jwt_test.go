package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/nodues/internal/app/models"
	"golang.org/x/crypto/bcrypt"
)

func newService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "secret", AccessTokenExp: exp, TokenIssuer: "nodues.test"})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newService(time.Hour)
	token, expiresIn, err := svc.GenerateToken(models.Actor{Subject: "library@nodues.app", Role: models.RoleUnit, Unit: models.UnitLibrary})
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.Equal(t, models.RoleUnit, actor.Role)
	assert.Equal(t, models.UnitLibrary, actor.Unit)
	assert.True(t, actor.CanActOn(models.UnitLibrary))
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newService(time.Hour)

	expired, _, err := newService(-time.Minute).GenerateToken(models.Actor{Subject: "S1", Role: models.RoleStudent})
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "nodues.test"})
	forged, _, err := other.GenerateToken(models.Actor{Subject: "S1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badUnit, _, err := svc.GenerateToken(models.Actor{Subject: "x", Role: models.RoleUnit, Unit: "Canteen"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(badUnit)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
