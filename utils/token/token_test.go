package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("test-secret")

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	tokenString, err := GenerateToken(userID, "user@example.com", testSecret, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	claims, err := ValidateToken(tokenString, testSecret)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	tokenString, err := GenerateToken(uuid.New(), "user@example.com", testSecret, time.Hour)
	assert.NoError(t, err)

	_, err = ValidateToken(tokenString, []byte("other-secret"))
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	tokenString, err := GenerateToken(uuid.New(), "user@example.com", testSecret, -time.Minute)
	assert.NoError(t, err)

	_, err = ValidateToken(tokenString, testSecret)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", testSecret)
	assert.Error(t, err)
}
