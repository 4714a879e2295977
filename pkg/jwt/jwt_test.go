package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, "pbxconnect-api")
	userID := uuid.New()

	token, err := m.Generate(userID, "alice", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", 15*time.Minute, "pbxconnect-api")
	verifier := NewManager("secret-b", 15*time.Minute, "pbxconnect-api")

	token, err := issuer.Generate(uuid.New(), "bob", "user")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	issuer := NewManager("secret", 15*time.Minute, "other-api")
	verifier := NewManager("secret", 15*time.Minute, "pbxconnect-api")

	token, err := issuer.Generate(uuid.New(), "bob", "user")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorContains(t, err, "audience")
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("secret", -time.Minute, "pbxconnect-api")

	token, err := m.Generate(uuid.New(), "carol", "user")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}
