package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/helpdeck/helpdeck/internal/shared/biztime"
)

// ErrRotationConflict is returned by Repository.UpdateToken when a concurrent
// rotation won the conditional write. The caller re-reads and adopts the
// winner's token.
var ErrRotationConflict = errors.New("session token rotation conflict")

// Session binds a client to a principal for a bounded time window.
// ID is the primary handle presented by the client; TokenID is a secondary
// credential rotated on a fixed cadence, so a leaked ID alone is not enough
// to impersonate the session.
type Session struct {
	ID                string
	UserID            string
	TokenID           string
	ExpiresAt         time.Time
	LastTokenRotation time.Time
	LastSeenAt        time.Time
	Metadata          map[string]string
	CreatedAt         time.Time
}

func NewSession(userID string, metadata map[string]string, duration time.Duration) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	id, err := generateSecureID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	tokenID, err := generateSecureID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token ID: %w", err)
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	now := biztime.NowUTC()
	return &Session{
		ID:                id,
		UserID:            userID,
		TokenID:           tokenID,
		ExpiresAt:         now.Add(duration),
		LastTokenRotation: now,
		LastSeenAt:        now,
		Metadata:          metadata,
		CreatedAt:         now,
	}, nil
}

// IsExpired reports whether the session is dead regardless of activity.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RotationDue reports whether the token rotation cadence has elapsed.
func (s *Session) RotationDue(now time.Time, interval time.Duration) bool {
	return now.Sub(s.LastTokenRotation) >= interval
}

// Rotate replaces the token ID and stamps the rotation time. The previous
// token must stop validating once the rotation is persisted.
func (s *Session) Rotate() error {
	tokenID, err := generateSecureID()
	if err != nil {
		return fmt.Errorf("failed to generate token ID: %w", err)
	}
	s.TokenID = tokenID
	s.LastTokenRotation = biztime.NowUTC()
	return nil
}

// TouchSeen updates the activity timestamp. Informational only, never part
// of the validity decision.
func (s *Session) TouchSeen() {
	s.LastSeenAt = biztime.NowUTC()
}

// generateSecureID returns 32 random bytes hex-encoded (256 bits of entropy).
func generateSecureID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	GetByUserID(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
	// UpdateToken persists a rotation with a conditional write guarded on the
	// previous rotation timestamp. Returns ErrRotationConflict when another
	// rotation already won.
	UpdateToken(ctx context.Context, sessionID string, prevRotation time.Time, tokenID string, rotatedAt time.Time) error
	// Touch updates LastSeenAt without bumping rotation or expiry state.
	Touch(ctx context.Context, sessionID string, seenAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
