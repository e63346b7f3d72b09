package audit

import (
	"context"
	"fmt"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry is an immutable record of a security-relevant action. Entries are
// append-only: this subsystem never mutates or deletes them.
type Entry struct {
	ID           uint
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Severity     Severity
	Status       Status
	Metadata     map[string]any
	Timestamp    time.Time
}

func NewEntry(userID, action, resourceType string) (*Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if action == "" {
		return nil, fmt.Errorf("action is required")
	}
	return &Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		Severity:     SeverityInfo,
		Status:       StatusSuccess,
		Metadata:     map[string]any{},
	}, nil
}

// Filter narrows an audit search. Zero values mean "any"; Limit is capped by
// the repository.
type Filter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Severity     Severity
	Status       Status
	From         time.Time
	To           time.Time
	Limit        int
}

// Repository is the append/query log store. There is deliberately no update
// or delete operation.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, filter Filter) ([]*Entry, error)
}
