package token_test

import (
	"testing"
	"time"

	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := token.NewManager("secret", time.Hour)

	signed, err := m.Generate("user-1")
	require.NoError(t, err)

	claims, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestManager_Rejects(t *testing.T) {
	m := token.NewManager("secret", time.Hour)
	other := token.NewManager("other-secret", time.Hour)
	expired := token.NewManager("secret", time.Nanosecond)

	foreign, err := other.Generate("user-1")
	require.NoError(t, err)

	stale, err := expired.Generate("user-1")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	for _, tok := range []string{"", "garbage", foreign, stale} {
		_, err := m.Validate(tok)
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	}
}
