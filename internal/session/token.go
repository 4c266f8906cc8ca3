package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when the stored access token is not a JWT.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrNoExpiry is returned when the token carries no exp claim.
	ErrNoExpiry = errors.New("access token has no expiry")
)

// TokenExpiry reads the exp claim of an access token without verifying
// its signature.  The console never holds the signing key; the backend
// verifies the token on every request, so this is only a freshness hint
// that saves a round-trip.
func TokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}
