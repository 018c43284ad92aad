package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateToken(t *testing.T) {
	service := NewAuthService("test-secret")

	token, err := service.IssueToken("org-1", "user-1", time.Hour)
	require.NoError(t, err)

	info, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", info.OrganizationID)
	assert.Equal(t, "user-1", info.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), info.ExpiresAt, 5*time.Second)
}

func TestValidateTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	token, err := NewAuthService("other-secret").IssueToken("org-1", "user-1", time.Hour)
	require.NoError(t, err)
	_, err = NewAuthService("test-secret").ValidateToken(token)
	assert.Error(t, err)

	expired, err := NewAuthService("test-secret").IssueToken("org-1", "user-1", -time.Minute)
	require.NoError(t, err)
	_, err = NewAuthService("test-secret").ValidateToken(expired)
	assert.Error(t, err)

	_, err = NewAuthService("test-secret").IssueToken("", "user-1", time.Hour)
	assert.Error(t, err)
}
