package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTokenRoundTrip(t *testing.T) {
	signer := NewCheckoutTokenSigner("test-secret", time.Minute)

	token, err := signer.Generate("session-1")
	require.NoError(t, err)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestCheckoutTokenRejectsForeignSecret(t *testing.T) {
	token, err := NewCheckoutTokenSigner("secret-a", time.Minute).Generate("session-1")
	require.NoError(t, err)

	_, err = NewCheckoutTokenSigner("secret-b", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidCheckoutToken)
}

func TestCheckoutTokenExpires(t *testing.T) {
	signer := NewCheckoutTokenSigner("test-secret", -time.Minute)

	token, err := signer.Generate("session-1")
	require.NoError(t, err)

	_, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidCheckoutToken)
}

func TestCheckoutTokenRejectsGarbage(t *testing.T) {
	_, err := NewCheckoutTokenSigner("test-secret", time.Minute).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidCheckoutToken)
}
