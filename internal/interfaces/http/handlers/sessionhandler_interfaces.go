package handlers

import (
	"context"

	"github.com/helpdeck/helpdeck/internal/domain/session"
)

// SessionService is the session lifecycle surface the handler needs.
type SessionService interface {
	ListForUser(ctx context.Context, userID string) ([]*session.Session, error)
	UpdateMetadata(ctx context.Context, sessionID string, metadata map[string]string) (*session.Session, error)
	Destroy(ctx context.Context, sessionID string) error
	DestroyAllForUser(ctx context.Context, userID string) error
}
