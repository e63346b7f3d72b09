package security

import (
	"context"
	"sync"
	"time"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
)

// fakeSessionRepo is an in-memory session.Repository with per-call error
// injection for failure-path tests.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*session.Session

	failGet         error
	failCreate      error
	failUpdate      error
	failUpdateToken error
	failDelete      error
	touched         []string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*session.Session{}}
}

func clone(s *session.Session) *session.Session {
	cp := *s
	cp.Metadata = map[string]string{}
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *session.Session) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = clone(s)
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*session.Session, error) {
	if r.failGet != nil {
		return nil, r.failGet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session not found")
	}
	return clone(s), nil
}

func (r *fakeSessionRepo) GetByUserID(ctx context.Context, userID string) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, clone(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *session.Session) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return errors.NewNotFoundError("session not found")
	}
	r.sessions[s.ID] = clone(s)
	return nil
}

func (r *fakeSessionRepo) UpdateToken(ctx context.Context, id string, prevRotation time.Time, tokenID string, rotatedAt time.Time) error {
	if r.failUpdateToken != nil {
		return r.failUpdateToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return errors.NewNotFoundError("session not found")
	}
	if !s.LastTokenRotation.Equal(prevRotation) {
		return session.ErrRotationConflict
	}
	s.TokenID = tokenID
	s.LastTokenRotation = rotatedAt
	return nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	if s, ok := r.sessions[id]; ok {
		s.LastSeenAt = seenAt
	}
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	if r.failDelete != nil {
		return r.failDelete
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return errors.NewNotFoundError("session not found")
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// stored returns the current store-side record, bypassing the manager.
func (r *fakeSessionRepo) stored(id string) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return clone(s)
}

// fakeAuditRepo records appended entries and can fail on demand.
type fakeAuditRepo struct {
	mu         sync.Mutex
	entries    []*audit.Entry
	failAppend error
	failSearch error
}

func (r *fakeAuditRepo) Append(ctx context.Context, e *audit.Entry) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeAuditRepo) Search(ctx context.Context, f audit.Filter) ([]*audit.Entry, error) {
	if r.failSearch != nil {
		return nil, r.failSearch
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*audit.Entry{}, r.entries...), nil
}

// recordedLog captures a structured log call for assertions.
type recordedLog struct {
	level string
	msg   string
	kv    map[string]any
}

// fakeLogger implements logger.Interface and records every call.
type fakeLogger struct {
	mu      sync.Mutex
	records []recordedLog
}

func (l *fakeLogger) record(level, msg string, keysAndValues ...any) {
	kv := map[string]any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			kv[k] = keysAndValues[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, recordedLog{level: level, msg: msg, kv: kv})
}

func (l *fakeLogger) find(level, msg string) *recordedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].level == level && l.records[i].msg == msg {
			return &l.records[i]
		}
	}
	return nil
}

func (l *fakeLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *fakeLogger) Info(msg string, args ...any) { l.record("info", msg, args...) }
func (l *fakeLogger) Warn(msg string, args ...any) { l.record("warn", msg, args...) }
func (l *fakeLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }

func (l *fakeLogger) With(args ...any) logger.Interface { return l }
func (l *fakeLogger) Named(name string) logger.Interface { return l }

func (l *fakeLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.record("debug", msg, keysAndValues...)
}
func (l *fakeLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.record("info", msg, keysAndValues...)
}
func (l *fakeLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.record("warn", msg, keysAndValues...)
}
func (l *fakeLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.record("error", msg, keysAndValues...)
}
