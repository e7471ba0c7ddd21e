package services

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenTTL is the lifetime of an issued admin token
const AdminTokenTTL = 2 * time.Hour

// AdminAuthenticator checks login attempts against the single configured admin
type AdminAuthenticator struct {
	email    string
	password string
}

// NewAdminAuthenticator creates an authenticator. password may be plaintext or a bcrypt hash.
func NewAdminAuthenticator(email, password string) *AdminAuthenticator {
	return &AdminAuthenticator{email: email, password: password}
}

// Authenticate reports whether email and password match the configured admin
func (a *AdminAuthenticator) Authenticate(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1

	var passwordOK bool
	if isBcryptHash(a.password) {
		passwordOK = bcrypt.CompareHashAndPassword([]byte(a.password), []byte(password)) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	}

	return emailOK && passwordOK
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// AdminClaims are the claims carried by an admin token
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs admin tokens with HS256
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates an issuer whose tokens expire after AdminTokenTTL
func NewTokenIssuer(secret, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      AdminTokenTTL,
		now:      time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// Issue signs a token for the admin identified by email
func (t *TokenIssuer) Issue(email string) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("token signing secret is empty")
	}

	issuedAt := t.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(t.ttl)
	claims := AdminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return token, expiresAt, nil
}
