package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValidity(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cred := Credential{
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    issued.Add(3600 * time.Second),
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at issue time", issued, true},
		{"one second before expiry", issued.Add(3599 * time.Second), true},
		{"exactly at expiry", issued.Add(3600 * time.Second), false},
		{"after expiry", issued.Add(3601 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cred.Valid(tt.now))
		})
	}
}

func TestCredentialEmptyTokenNeverValid(t *testing.T) {
	cred := Credential{ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, cred.Valid(time.Now()))
}
