package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Minute, time.Hour)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, "p@example.com", RoleProvider)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleProvider, claims.Role)
}

func TestJWTManager_Rejections(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, time.Hour)
	expired, err := m.GenerateAccessToken(uuid.New(), "a@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	refresh, err := m.GenerateRefreshToken(uuid.New(), "a@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTManager("other-secret", time.Minute, time.Hour)
	foreign, err := other.GenerateAccessToken(uuid.New(), "a@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
