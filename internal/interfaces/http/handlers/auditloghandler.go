package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
	"github.com/helpdeck/helpdeck/internal/shared/utils"
)

// AuditSearcher queries the durable audit store.
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error)
}

type AuditLogHandler struct {
	audits AuditSearcher
	logger logger.Interface
}

func NewAuditLogHandler(audits AuditSearcher, logger logger.Interface) *AuditLogHandler {
	return &AuditLogHandler{
		audits: audits,
		logger: logger,
	}
}

// AuditEntryResponse is the client-visible view of an audit entry.
type AuditEntryResponse struct {
	ID           uint           `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Severity     string         `json:"severity"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

func toAuditEntryResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:           e.ID,
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Severity:     string(e.Severity),
		Status:       string(e.Status),
		Metadata:     e.Metadata,
		Timestamp:    biztime.FormatMetadataTime(e.Timestamp),
	}
}

// Search queries stored audit entries by the query-string filters. Reads go
// straight to the durable store; if it is unreachable the request fails.
func (h *AuditLogHandler) Search(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	entries, err := h.audits.Search(c.Request.Context(), filter)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	responses := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = toAuditEntryResponse(e)
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

func parseAuditFilter(c *gin.Context) (audit.Filter, error) {
	filter := audit.Filter{
		UserID:       c.Query("user_id"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Severity:     audit.Severity(c.Query("severity")),
		Status:       audit.Status(c.Query("status")),
	}

	fields := map[string]string{}

	if from := c.Query("from"); from != "" {
		ts, err := biztime.ParseMetadataTime(from)
		if err != nil {
			fields["from"] = "must be an RFC 3339 timestamp"
		} else {
			filter.From = ts
		}
	}
	if to := c.Query("to"); to != "" {
		ts, err := biztime.ParseMetadataTime(to)
		if err != nil {
			fields["to"] = "must be an RFC 3339 timestamp"
		} else {
			filter.To = ts
		}
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			fields["limit"] = "must be a non-negative integer"
		} else {
			filter.Limit = n
		}
	}

	if len(fields) > 0 {
		return audit.Filter{}, errors.NewSchemaMismatchError(fields)
	}
	return filter, nil
}
