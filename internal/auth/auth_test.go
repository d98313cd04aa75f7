package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret")
	token, err := v.Issue(Principal{UserID: "user-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	p, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestJWTVerifier_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWTVerifier("other").Issue(Principal{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTVerifier("secret").Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsExpired(t *testing.T) {
	v := NewJWTVerifier("secret")
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := v.Issue(Principal{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsGarbage(t *testing.T) {
	v := NewJWTVerifier("secret")
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}
