// Package tokenstore keeps the console's access and refresh credentials
// between runs.  It plays the role browser local storage plays for a web
// console: two fixed keys, cleared on logout and before every login.
package tokenstore

import (
	"context"
	"errors"
)

// Fixed keys under which the credentials are stored.
const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("token not found")

// Store persists credential strings under fixed keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Clear removes both credentials.
	Clear(ctx context.Context) error
	Close() error
}

// Lookup returns the value for key, or "" when it is absent.  Other
// errors are passed through.
func Lookup(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
