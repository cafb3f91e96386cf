package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSignerRoundTrip(t *testing.T) {
	s := NewTokenSigner([]byte("secret"))

	tok, err := s.Issue("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestTokenSignerRejects(t *testing.T) {
	s := NewTokenSigner([]byte("secret"))

	viewer, err := s.Issue("ops", "viewer", time.Hour)
	require.NoError(t, err)
	_, err = s.Validate(viewer)
	assert.ErrorIs(t, err, ErrNotAdmin)

	other := NewTokenSigner([]byte("other"))
	forged, err := other.Issue("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = s.Validate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := s.Issue("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	s.now = time.Now
	_, err = s.Validate(old)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
