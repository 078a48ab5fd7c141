package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"turnos/shift-service/internal/models"
)

// Safety margin under the identity service's 60-minute token lifetime.
const tokenTTL = 55 * time.Minute

type credentialSource interface {
	UserByNumberID(ctx context.Context, id string) (models.User, error)
	Login(ctx context.Context, userName, password string) (string, error)
}

// TokenCache holds one shared bearer token. It is not keyed per user:
// the token minted for whichever user last triggered a refresh authorizes
// every identity read until it expires.
type TokenCache struct {
	source credentialSource
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(source credentialSource, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{source: source, now: now}
}

// Token returns the cached bearer token when still valid, otherwise
// refreshes it by fetching the user's credentials and logging in. The
// mutex is held across the refresh so concurrent callers wait on a
// single flight instead of issuing redundant logins.
func (c *TokenCache) Token(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	user, err := c.source.UserByNumberID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.UserName == "" || user.Password == "" {
		return "", fmt.Errorf("%w: user %s", ErrMissingCredentials, userID)
	}

	token, err := c.source.Login(ctx, user.UserName, user.Password)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = c.now().Add(tokenTTL)
	return token, nil
}
