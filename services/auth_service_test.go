package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthenticator_Plaintext(t *testing.T) {
	auth := NewAdminAuthenticator("admin@example.com", "s3cret")

	tests := []struct {
		name     string
		email    string
		password string
		want     bool
	}{
		{"valid", "admin@example.com", "s3cret", true},
		{"wrong password", "admin@example.com", "nope", false},
		{"wrong email", "other@example.com", "s3cret", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Authenticate(tt.email, tt.password))
		})
	}
}

func TestAdminAuthenticator_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAdminAuthenticator("admin@example.com", string(hash))

	assert.True(t, auth.Authenticate("admin@example.com", "s3cret"))
	assert.False(t, auth.Authenticate("admin@example.com", string(hash)), "the hash itself is not the password")
	assert.False(t, auth.Authenticate("admin@example.com", "wrong"))
}

func TestTokenIssuer_Issue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", "fvorders-api", "fvorders-admin").WithClock(func() time.Time { return now })

	token, expiresAt, err := issuer.Issue("admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(AdminTokenTTL), expiresAt)

	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return now.Add(time.Minute) }), jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin@example.com", claims.Subject)
	assert.Equal(t, "fvorders-api", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"fvorders-admin"}, claims.Audience)
	assert.Equal(t, now, claims.IssuedAt.Time.UTC())
}

func TestTokenIssuer_EmptySecret(t *testing.T) {
	_, _, err := NewTokenIssuer("", "iss", "aud").Issue("admin@example.com")
	assert.Error(t, err)
}

func TestIsBcryptHash(t *testing.T) {
	assert.True(t, isBcryptHash("$2a$10$abc"))
	assert.True(t, isBcryptHash("$2b$10$abc"))
	assert.True(t, isBcryptHash("$2y$10$abc"))
	assert.False(t, isBcryptHash("plain-password"))
}
