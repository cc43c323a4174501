package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("s3cret", "HS256")

	token, err := svc.Issue("ops", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService("s3cret", "HS256")

	expired, err := svc.Issue("ops", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Validate(expired)
	assert.Error(t, err, "expired")

	other, err := NewTokenService("other", "HS256").Issue("ops", time.Hour)
	require.NoError(t, err)
	_, err = svc.Validate(other)
	assert.Error(t, err, "wrong key")

	hs512, err := NewTokenService("s3cret", "HS512").Issue("ops", time.Hour)
	require.NoError(t, err)
	_, err = svc.Validate(hs512)
	assert.Error(t, err, "wrong algorithm")

	_, err = svc.Validate("not.a.token")
	assert.Error(t, err)
}

func TestTokenServiceWithoutKey(t *testing.T) {
	_, err := NewTokenService("", "HS256").Issue("ops", time.Hour)
	assert.Error(t, err)
}
