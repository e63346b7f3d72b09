package security

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
)

func TestAuditLogger_Log(t *testing.T) {
	ctx := context.Background()

	t.Run("appends with timestamp and defaults", func(t *testing.T) {
		repo := &fakeAuditRepo{}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})

		al.Log(ctx, &audit.Entry{UserID: "user-1", Action: "GET", ResourceType: "/api/sessions"})

		require.Len(t, repo.entries, 1)
		got := repo.entries[0]
		assert.False(t, got.Timestamp.IsZero())
		assert.Equal(t, audit.SeverityInfo, got.Severity)
		assert.Equal(t, audit.StatusSuccess, got.Status)
	})

	t.Run("store failure degrades to local emission without raising", func(t *testing.T) {
		repo := &fakeAuditRepo{failAppend: stderrors.New("store down")}
		log := &fakeLogger{}
		al := NewAuditLogger(repo, time.Second, log)

		assert.NotPanics(t, func() {
			al.Log(ctx, &audit.Entry{UserID: "user-1", Action: "DELETE", ResourceType: "/api/sessions"})
		})

		assert.Empty(t, repo.entries)
		fallback := log.find("warn", "audit store unreachable, recording entry locally")
		require.NotNil(t, fallback)
		assert.Equal(t, true, fallback.kv["audit_fallback"])
		assert.Equal(t, "user-1", fallback.kv["user_id"])
		assert.Equal(t, "DELETE", fallback.kv["action"])
	})
}

func TestAuditLogger_TypedHelpers(t *testing.T) {
	ctx := context.Background()

	t.Run("auth failure is a warning, success is info", func(t *testing.T) {
		repo := &fakeAuditRepo{}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})

		al.LogAuthEvent(ctx, "user-1", "login", audit.StatusFailure, nil)
		al.LogAuthEvent(ctx, "user-1", "login", audit.StatusSuccess, nil)

		require.Len(t, repo.entries, 2)
		assert.Equal(t, audit.SeverityWarning, repo.entries[0].Severity)
		assert.Equal(t, audit.StatusFailure, repo.entries[0].Status)
		assert.Equal(t, audit.SeverityInfo, repo.entries[1].Severity)
	})

	t.Run("data access asserts success", func(t *testing.T) {
		repo := &fakeAuditRepo{}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})

		al.LogDataAccess(ctx, "user-1", "/api/sessions", "sess-1", "GET", map[string]any{"ip": "203.0.113.7"})

		require.Len(t, repo.entries, 1)
		assert.Equal(t, audit.SeverityInfo, repo.entries[0].Severity)
		assert.Equal(t, audit.StatusSuccess, repo.entries[0].Status)
		assert.Equal(t, "sess-1", repo.entries[0].ResourceID)
	})

	t.Run("security events are failures with warning default severity", func(t *testing.T) {
		repo := &fakeAuditRepo{}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})

		al.LogSecurityEvent(ctx, "anonymous", "invalid_session", nil)
		al.LogSecurityEvent(ctx, "user-1", "token_replay", nil, audit.SeverityCritical)

		require.Len(t, repo.entries, 2)
		assert.Equal(t, audit.StatusFailure, repo.entries[0].Status)
		assert.Equal(t, audit.SeverityWarning, repo.entries[0].Severity)
		assert.Equal(t, audit.SeverityCritical, repo.entries[1].Severity)
	})
}

func TestAuditLogger_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored entries", func(t *testing.T) {
		repo := &fakeAuditRepo{}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})
		al.LogDataAccess(ctx, "user-1", "/api/sessions", "", "GET", nil)

		entries, err := al.Search(ctx, audit.Filter{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("store failure maps to taxonomy error with no fallback", func(t *testing.T) {
		repo := &fakeAuditRepo{failSearch: stderrors.New("store down")}
		al := NewAuditLogger(repo, time.Second, &fakeLogger{})

		_, err := al.Search(ctx, audit.Filter{})
		require.Error(t, err)
		secErr := errors.GetSecurityError(err)
		require.NotNil(t, secErr)
		assert.Equal(t, errors.CodeUnknown, secErr.SecurityCode)
	})
}
