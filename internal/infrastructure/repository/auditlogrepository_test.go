package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AuditLogModel{})
	require.NoError(t, err)

	return db
}

func appendTestEntry(t *testing.T, repo audit.Repository, e *audit.Entry) {
	t.Helper()
	if e.Timestamp.IsZero() {
		e.Timestamp = biztime.NowUTC()
	}
	require.NoError(t, repo.Append(context.Background(), e))
}

func TestAuditLogRepository_Append(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	t.Run("assigns an id and round-trips metadata", func(t *testing.T) {
		entry := &audit.Entry{
			UserID:       "user-1",
			Action:       "GET",
			ResourceType: "/api/sessions",
			Severity:     audit.SeverityInfo,
			Status:       audit.StatusSuccess,
			Metadata:     map[string]any{"ip": "203.0.113.7"},
			Timestamp:    biztime.NowUTC(),
		}
		err := repo.Append(ctx, entry)
		require.NoError(t, err)
		assert.NotZero(t, entry.ID)

		entries, err := repo.Search(ctx, audit.Filter{UserID: "user-1"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "203.0.113.7", entries[0].Metadata["ip"])
	})
}

func TestAuditLogRepository_Search(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	base := biztime.NowUTC()
	appendTestEntry(t, repo, &audit.Entry{
		UserID: "user-1", Action: "login", ResourceType: "auth",
		Severity: audit.SeverityInfo, Status: audit.StatusSuccess, Timestamp: base.Add(-2 * time.Hour),
	})
	appendTestEntry(t, repo, &audit.Entry{
		UserID: "user-1", Action: "invalid_session", ResourceType: "security",
		Severity: audit.SeverityWarning, Status: audit.StatusFailure, Timestamp: base.Add(-time.Hour),
	})
	appendTestEntry(t, repo, &audit.Entry{
		UserID: "user-2", Action: "GET", ResourceType: "/api/sessions", ResourceID: "sess-9",
		Severity: audit.SeverityInfo, Status: audit.StatusSuccess, Timestamp: base,
	})

	t.Run("filters by principal", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("filters by severity and status", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{Severity: audit.SeverityWarning, Status: audit.StatusFailure})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "invalid_session", entries[0].Action)
	})

	t.Run("filters by time window", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{
			From: base.Add(-90 * time.Minute),
			To:   base.Add(-time.Minute),
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "invalid_session", entries[0].Action)
	})

	t.Run("orders newest first", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "GET", entries[0].Action)
		assert.Equal(t, "login", entries[2].Action)
	})

	t.Run("caps the result size", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("filter by resource id", func(t *testing.T) {
		entries, err := repo.Search(ctx, audit.Filter{ResourceID: "sess-9"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "user-2", entries[0].UserID)
	})
}
