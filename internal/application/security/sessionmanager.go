// Package security implements the request security pipeline services:
// session lifecycle with token rotation, and tamper-evident audit logging.
package security

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/goroutine"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
)

const (
	DefaultSessionDuration  = 24 * time.Hour
	DefaultRotationInterval = 15 * time.Minute
	DefaultStoreTimeout     = 3 * time.Second
)

type SessionManagerConfig struct {
	SessionDuration  time.Duration
	RotationInterval time.Duration
	StoreTimeout     time.Duration
}

// SessionManager owns session creation, validation, expiry and token
// rotation. It is the sole writer of session records; the store is a passive
// record keeper.
type SessionManager struct {
	sessions session.Repository
	cfg      SessionManagerConfig
	logger   logger.Interface
}

func NewSessionManager(sessions session.Repository, cfg SessionManagerConfig, log logger.Interface) *SessionManager {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	if cfg.RotationInterval <= 0 {
		cfg.RotationInterval = DefaultRotationInterval
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &SessionManager{
		sessions: sessions,
		cfg:      cfg,
		logger:   log,
	}
}

// Create issues a new session for a principal after primary authentication
// has succeeded elsewhere.
func (m *SessionManager) Create(ctx context.Context, userID string, metadata map[string]string) (*session.Session, error) {
	sess, err := session.NewSession(userID, metadata, m.cfg.SessionDuration)
	if err != nil {
		return nil, errors.NewValidationError("failed to create session", err.Error())
	}

	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	if err := m.sessions.Create(ctx, sess); err != nil {
		m.logger.Errorw("failed to persist session", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to create session")
	}
	return sess, nil
}

// Validate checks the presented credentials against the stored record. A
// session is valid iff it has not expired and the presented token ID equals
// the currently stored one. Store failures are folded into the same invalid
// result: a security gate fails closed and leaks nothing about infrastructure
// state to the caller.
func (m *SessionManager) Validate(ctx context.Context, sessionID, tokenID string) (*session.Session, error) {
	if sessionID == "" || tokenID == "" {
		return nil, errors.NewInvalidSessionError()
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	sess, err := m.sessions.GetByID(storeCtx, sessionID)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			m.logger.Errorw("session store unavailable during validation, failing closed", "error", err)
		}
		return nil, errors.NewInvalidSessionError()
	}

	now := biztime.NowUTC()
	if sess.IsExpired(now) {
		if err := m.sessions.Delete(storeCtx, sess.ID); err != nil && !errors.IsNotFoundError(err) {
			m.logger.Warnw("failed to delete expired session", "error", err, "session_id", sess.ID)
		}
		return nil, errors.NewInvalidSessionError()
	}

	// A stale token here is either a replay of a rotated-out credential or a
	// client that lost a rotation race; both must re-authenticate.
	if sess.TokenID != tokenID {
		return nil, errors.NewInvalidSessionError()
	}

	if sess.RotationDue(now, m.cfg.RotationInterval) {
		rotated, err := m.rotate(storeCtx, sess)
		if err != nil {
			m.logger.Errorw("token rotation failed, failing closed", "error", err, "session_id", sess.ID)
			return nil, errors.NewInvalidSessionError()
		}
		sess = rotated
	}

	m.touchAsync(sess.ID)

	return sess, nil
}

// rotate persists a fresh token with a conditional write so exactly one
// concurrent rotation wins. The loser adopts the winner's token
// transparently, keeping the old-token-never-validates guarantee intact.
func (m *SessionManager) rotate(ctx context.Context, sess *session.Session) (*session.Session, error) {
	prevRotation := sess.LastTokenRotation
	if err := sess.Rotate(); err != nil {
		return nil, err
	}

	err := m.sessions.UpdateToken(ctx, sess.ID, prevRotation, sess.TokenID, sess.LastTokenRotation)
	if err == nil {
		return sess, nil
	}
	if stderrors.Is(err, session.ErrRotationConflict) {
		current, getErr := m.sessions.GetByID(ctx, sess.ID)
		if getErr != nil {
			return nil, getErr
		}
		m.logger.Debugw("lost token rotation race, adopting winning token", "session_id", sess.ID)
		return current, nil
	}
	return nil, err
}

// Destroy removes a session. Destroying an absent session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		if errors.IsNotFoundError(err) {
			return nil
		}
		m.logger.Errorw("failed to destroy session", "error", err, "session_id", sessionID)
		return errors.NewInternalError("failed to destroy session")
	}
	return nil
}

// DestroyAllForUser revokes every session belonging to a principal.
func (m *SessionManager) DestroyAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	if err := m.sessions.DeleteByUserID(ctx, userID); err != nil {
		m.logger.Errorw("failed to revoke user sessions", "error", err, "user_id", userID)
		return errors.NewInternalError("failed to revoke sessions")
	}
	return nil
}

// ListForUser returns the principal's live sessions.
func (m *SessionManager) ListForUser(ctx context.Context, userID string) ([]*session.Session, error) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	sessions, err := m.sessions.GetByUserID(ctx, userID)
	if err != nil {
		m.logger.Errorw("failed to list user sessions", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list sessions")
	}
	return sessions, nil
}

// UpdateMetadata merges entries into the session's informational metadata
// bag. Metadata is never part of the validity decision.
func (m *SessionManager) UpdateMetadata(ctx context.Context, sessionID string, metadata map[string]string) (*session.Session, error) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewInvalidSessionError()
		}
		return nil, errors.NewInternalError("failed to load session")
	}

	if sess.Metadata == nil {
		sess.Metadata = map[string]string{}
	}
	for k, v := range metadata {
		sess.Metadata[k] = v
	}

	if err := m.sessions.Update(ctx, sess); err != nil {
		m.logger.Errorw("failed to update session metadata", "error", err, "session_id", sessionID)
		return nil, errors.NewInternalError("failed to update session")
	}
	return sess, nil
}

// CleanupExpired removes dead session records. Called by the background
// sweeper; validation already destroys expired sessions it encounters.
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	return m.sessions.DeleteExpired(ctx)
}

// touchAsync updates the activity timestamp as an explicit detached task with
// its own error handling, so the synchronous validation path never waits on
// or fails with a bookkeeping write.
func (m *SessionManager) touchAsync(sessionID string) {
	seenAt := biztime.NowUTC()
	goroutine.SafeGo(m.logger, "session-touch", func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
		defer cancel()

		if err := m.sessions.Touch(ctx, sessionID, seenAt); err != nil && !errors.IsNotFoundError(err) {
			m.logger.Warnw("failed to touch session activity", "error", err, "session_id", sessionID)
		}
	})
}

func (m *SessionManager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}
