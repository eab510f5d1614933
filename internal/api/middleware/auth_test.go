package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)

	raw, err := tokens.Issue("admin")
	require.NoError(t, err)

	subject, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	raw, err := tokens.Issue("admin")
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectTampering(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	raw, err := tokens.Issue("admin")
	require.NoError(t, err)

	_, err = tokens.Verify(raw + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokens([]byte("other"), time.Minute).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
