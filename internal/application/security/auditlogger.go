package security

import (
	"context"
	"time"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
)

// AuditLogger records security-relevant events. Writes degrade to a local
// structured log line when the store is unreachable, so the pipeline never
// blocks or aborts a request solely because the audit sink is down. Reads
// have no fallback.
type AuditLogger struct {
	entries      audit.Repository
	storeTimeout time.Duration
	logger       logger.Interface
}

func NewAuditLogger(entries audit.Repository, storeTimeout time.Duration, log logger.Interface) *AuditLogger {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &AuditLogger{
		entries:      entries,
		storeTimeout: storeTimeout,
		logger:       log,
	}
}

// Log appends the entry to durable storage, stamping its timestamp. It never
// returns an error: on store failure the entry is emitted to the process's
// own output and durability is recovered out of band.
func (l *AuditLogger) Log(ctx context.Context, entry *audit.Entry) {
	entry.Timestamp = biztime.NowUTC()
	if entry.Severity == "" {
		entry.Severity = audit.SeverityInfo
	}
	if entry.Status == "" {
		entry.Status = audit.StatusSuccess
	}

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	if err := l.entries.Append(ctx, entry); err != nil {
		l.logLocally(entry, err)
	}
}

// LogAuthEvent records an authentication lifecycle event.
func (l *AuditLogger) LogAuthEvent(ctx context.Context, userID, action string, status audit.Status, metadata map[string]any) {
	severity := audit.SeverityInfo
	if status == audit.StatusFailure {
		severity = audit.SeverityWarning
	}
	l.Log(ctx, &audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: "auth",
		Severity:     severity,
		Status:       status,
		Metadata:     metadata,
	})
}

// LogDataAccess records a granted access. This call site asserts the access
// already succeeded, so entries are always info/success.
func (l *AuditLogger) LogDataAccess(ctx context.Context, userID, resourceType, resourceID, action string, metadata map[string]any) {
	l.Log(ctx, &audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     audit.SeverityInfo,
		Status:       audit.StatusSuccess,
		Metadata:     metadata,
	})
}

// LogSecurityEvent records an anomaly (bad credentials, tampering). Always a
// failure; severity defaults to warning.
func (l *AuditLogger) LogSecurityEvent(ctx context.Context, userID, action string, metadata map[string]any, severity ...audit.Severity) {
	sev := audit.SeverityWarning
	if len(severity) > 0 {
		sev = severity[0]
	}
	l.Log(ctx, &audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: "security",
		Severity:     sev,
		Status:       audit.StatusFailure,
		Metadata:     metadata,
	})
}

// Search queries stored entries. Store failure is a taxonomy error; the read
// path has no local fallback.
func (l *AuditLogger) Search(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	entries, err := l.entries.Search(ctx, filter)
	if err != nil {
		l.logger.Errorw("audit log search failed", "error", err)
		return nil, errors.NewUnknownError("audit store unreachable")
	}
	return entries, nil
}

func (l *AuditLogger) logLocally(entry *audit.Entry, cause error) {
	l.logger.Warnw("audit store unreachable, recording entry locally",
		"audit_fallback", true,
		"error", cause,
		"user_id", entry.UserID,
		"action", entry.Action,
		"resource_type", entry.ResourceType,
		"resource_id", entry.ResourceID,
		"severity", string(entry.Severity),
		"status", string(entry.Status),
		"metadata", entry.Metadata,
		"timestamp", biztime.FormatMetadataTime(entry.Timestamp),
	)
}
