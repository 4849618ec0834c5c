package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDigestTokenIsStableAndOpaque(t *testing.T) {
	a := digestToken("4f1c0e8a-reset")
	assert.Equal(t, a, digestToken("4f1c0e8a-reset"))
	assert.NotEqual(t, a, digestToken("4f1c0e8a-reseT"))
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "reset")
}

func TestResetTokenUsable(t *testing.T) {
	now := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	assert.True(t, (&PasswordResetToken{ExpiresAt: now.Add(time.Hour)}).Usable(now))
	assert.False(t, (&PasswordResetToken{ExpiresAt: now}).Usable(now))
	assert.False(t, (&PasswordResetToken{ExpiresAt: now.Add(time.Hour), UsedAt: &used}).Usable(now))
}
