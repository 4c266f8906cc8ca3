// Package sessiontest mints access tokens for tests that exercise the
// session guard and the console's protected routes.
package sessiontest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

// AccessToken builds and signs an HS256 JWT that expires at exp.  The
// claims match what the backend issues: subject, expiry and issued-at.
func AccessToken(t testing.TB, userID int64, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":        userID,
		"token_type": "access",
		"exp":        exp.Unix(),
		"iat":        time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	return signed
}

// TokenWithoutExpiry builds a signed JWT that has no exp claim.
func TokenWithoutExpiry(t testing.TB) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
