package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "ebook-studio")
	token, err := m.GenerateToken("admin@ebook.com", "admin", "sess-1", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@ebook.com", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestJWTRejectsWrongSecretAndIssuer(t *testing.T) {
	token, err := NewJWTManager("secret", "ebook-studio").GenerateToken("u", "user", "s", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("other", "ebook-studio").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTManager("secret", "someone-else").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("secret", "ebook-studio")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.GenerateToken("u", "user", "s", time.Hour)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
