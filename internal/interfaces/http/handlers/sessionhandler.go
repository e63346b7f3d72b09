package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
	"github.com/helpdeck/helpdeck/internal/shared/constants"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
	"github.com/helpdeck/helpdeck/internal/shared/utils"
)

type SessionHandler struct {
	sessions SessionService
	logger   logger.Interface
}

func NewSessionHandler(sessions SessionService, logger logger.Interface) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// SessionResponse is the client-visible view of a session. The token is
// never part of it.
type SessionResponse struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
	LastSeenAt string            `json:"last_seen_at"`
	ExpiresAt  string            `json:"expires_at"`
	Current    bool              `json:"current"`
}

func toSessionResponse(s *session.Session, currentID string) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		Metadata:   s.Metadata,
		CreatedAt:  biztime.FormatMetadataTime(s.CreatedAt),
		LastSeenAt: biztime.FormatMetadataTime(s.LastSeenAt),
		ExpiresAt:  biztime.FormatMetadataTime(s.ExpiresAt),
		Current:    s.ID == currentID,
	}
}

func principal(c *gin.Context) (userID, sessionID string, err error) {
	uid, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", "", errors.NewInvalidSessionError()
	}
	sid, exists := c.Get(constants.ContextKeySessionID)
	if !exists {
		return "", "", errors.NewInvalidSessionError()
	}
	return uid.(string), sid.(string), nil
}

// ListSessions returns every live session of the authenticated user.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID, sessionID, err := principal(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	sessions, err := h.sessions.ListForUser(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	responses := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = toSessionResponse(s, sessionID)
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// UpdateCurrentSession merges client-supplied metadata into the current
// session. The payload reaches this handler already validated and sanitized.
func (h *SessionHandler) UpdateCurrentSession(c *gin.Context) {
	_, sessionID, err := principal(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var metadata map[string]string
	if err := c.ShouldBindJSON(&metadata); err != nil {
		utils.ErrorResponseWithError(c, errors.NewSchemaMismatchError(map[string]string{
			"body": "must be a JSON object of string values",
		}))
		return
	}

	updated, err := h.sessions.UpdateMetadata(c.Request.Context(), sessionID, metadata)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session updated", toSessionResponse(updated, sessionID))
}

// Logout destroys the current session.
func (h *SessionHandler) Logout(c *gin.Context) {
	_, sessionID, err := principal(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// RevokeAll destroys every session of the authenticated user, the current
// one included.
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	userID, _, err := principal(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if err := h.sessions.DestroyAllForUser(c.Request.Context(), userID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("all sessions revoked", "user_id", userID)
	utils.NoContentResponse(c)
}
