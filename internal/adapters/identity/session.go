package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionVerifier looks session tokens up in the identity backend's Redis
// session store, where session:<token> holds the user id.
type SessionVerifier struct {
	client *redis.Client
}

func NewSessionVerifier(client *redis.Client) *SessionVerifier {
	return &SessionVerifier{client: client}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (v *SessionVerifier) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	if creds.SessionToken == "" {
		return domain.Identity{}, core.ErrUnauthenticated
	}
	user, err := v.client.Get(ctx, sessionKey(creds.SessionToken)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, fmt.Errorf("%w: unknown session", core.ErrUnauthenticated)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("session lookup: %w", err)
	}
	id, err := domain.NewAccountIdentity(user)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: session user: %v", core.ErrUnauthenticated, err)
	}
	return id, nil
}
