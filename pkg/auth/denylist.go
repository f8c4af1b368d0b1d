package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Denylist records revoked token IDs until their natural expiry, so a
// logout takes effect before the token runs out. Entries carry a TTL
// aligned with the token expiry, keeping the set small and self-cleaning.
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewDenylist creates a denylist backed by the given Redis client
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{
		client: client,
		now:    time.Now,
	}
}

func denyKey(tokenID string) string {
	return "vhub:denylist:" + tokenID
}

// Revoke marks the token identified by the claims as revoked for the
// remainder of its lifetime. Revoking an already-expired token is a no-op.
func (d *Denylist) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to denylist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, denyKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check denylist: %w", err)
	}
	return n > 0, nil
}
