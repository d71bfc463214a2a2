package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCookieRoundTrip(t *testing.T) {
	token, err := SignSessionID(testSecret, "sess-42", time.Hour)
	require.NoError(t, err)

	id, err := ParseSessionID(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", id)
}

func TestCookieExpired(t *testing.T) {
	token, err := SignSessionID(testSecret, "sess-42", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionID(testSecret, token)
	assert.ErrorIs(t, err, ErrCookieExpired)
}

func TestCookieWrongSecret(t *testing.T) {
	token, err := SignSessionID(testSecret, "sess-42", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionID("another-secret-another-secret-xx", token)
	assert.ErrorIs(t, err, ErrCookieInvalid)
}

func TestCookieGarbage(t *testing.T) {
	_, err := ParseSessionID(testSecret, "not-a-jwt")
	assert.ErrorIs(t, err, ErrCookieInvalid)
}
