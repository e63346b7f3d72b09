package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
)

const (
	sessionKeyPrefix = "session:id:"
	sessionMaxTTL    = 15 * time.Minute
)

// SessionCache is a read-through Redis layer over a session.Repository.
// Lookups by ID hit Redis first; every other call delegates to the inner
// repository. Cache failures are absorbed silently so Redis going away
// degrades to plain store reads.
//
// Cached entries carry a TTL capped at sessionMaxTTL, and token changes
// invalidate eagerly, so a stale cached token never outlives a rotation
// interval. last_seen_at staleness inside the TTL window is tolerated.
type SessionCache struct {
	inner  session.Repository
	client *redis.Client
}

// NewSessionCache wraps repo with a Redis read-through cache.
func NewSessionCache(repo session.Repository, client *redis.Client) session.Repository {
	return &SessionCache{inner: repo, client: client}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (c *SessionCache) Create(ctx context.Context, s *session.Session) error {
	if err := c.inner.Create(ctx, s); err != nil {
		return err
	}
	c.store(ctx, s)
	return nil
}

func (c *SessionCache) GetByID(ctx context.Context, sessionID string) (*session.Session, error) {
	if data, err := c.client.Get(ctx, sessionKey(sessionID)).Bytes(); err == nil {
		var s session.Session
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		// corrupt entry, drop it and fall through to the store
		c.client.Del(ctx, sessionKey(sessionID))
	}

	s, err := c.inner.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, s)
	return s, nil
}

func (c *SessionCache) GetByUserID(ctx context.Context, userID string) ([]*session.Session, error) {
	return c.inner.GetByUserID(ctx, userID)
}

func (c *SessionCache) Update(ctx context.Context, s *session.Session) error {
	if err := c.inner.Update(ctx, s); err != nil {
		return err
	}
	c.store(ctx, s)
	return nil
}

func (c *SessionCache) UpdateToken(ctx context.Context, sessionID string, prevRotation time.Time, tokenID string, rotatedAt time.Time) error {
	if err := c.inner.UpdateToken(ctx, sessionID, prevRotation, tokenID, rotatedAt); err != nil {
		// a conflict means someone else rotated; the cached token is stale either way
		c.client.Del(ctx, sessionKey(sessionID))
		return err
	}
	c.client.Del(ctx, sessionKey(sessionID))
	return nil
}

func (c *SessionCache) Touch(ctx context.Context, sessionID string, seenAt time.Time) error {
	return c.inner.Touch(ctx, sessionID, seenAt)
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.inner.Delete(ctx, sessionID); err != nil {
		return err
	}
	c.client.Del(ctx, sessionKey(sessionID))
	return nil
}

func (c *SessionCache) DeleteByUserID(ctx context.Context, userID string) error {
	sessions, err := c.inner.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.inner.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	for _, s := range sessions {
		c.client.Del(ctx, sessionKey(s.ID))
	}
	return nil
}

func (c *SessionCache) DeleteExpired(ctx context.Context) (int64, error) {
	// cached entries self-expire: their TTL never exceeds the session's
	// remaining lifetime
	return c.inner.DeleteExpired(ctx)
}

func (c *SessionCache) store(ctx context.Context, s *session.Session) {
	if s == nil {
		return
	}
	ttl := s.ExpiresAt.Sub(biztime.NowUTC())
	if ttl > sessionMaxTTL {
		ttl = sessionMaxTTL
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.client.Set(ctx, sessionKey(s.ID), data, ttl)
}
