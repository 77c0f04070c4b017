package repository

import (
	"context"
	"errors"
)

// TokenKey is the fixed key the session token is persisted under.
const TokenKey = "bruttobar__jwt"

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository defines durable storage for the raw session token.
// Only the session store writes through it.
type TokenRepository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}
