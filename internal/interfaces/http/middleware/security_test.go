package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/shared/constants"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
	"github.com/helpdeck/helpdeck/internal/shared/utils"
	"github.com/helpdeck/helpdeck/internal/shared/validation"
)

type fakeValidator struct {
	mu    sync.Mutex
	sess  *session.Session
	errs  []error
	calls int
}

func (v *fakeValidator) Validate(ctx context.Context, sessionID, tokenID string) (*session.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	call := v.calls
	v.calls++
	if call < len(v.errs) && v.errs[call] != nil {
		return nil, v.errs[call]
	}
	return v.sess, nil
}

type auditedCall struct {
	userID   string
	action   string
	resource string
}

type fakeAudits struct {
	mu       sync.Mutex
	accesses []auditedCall
	events   []auditedCall
}

func (a *fakeAudits) LogDataAccess(ctx context.Context, userID, resourceType, resourceID, action string, metadata map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accesses = append(a.accesses, auditedCall{userID: userID, action: action, resource: resourceType})
}

func (a *fakeAudits) LogSecurityEvent(ctx context.Context, userID, action string, metadata map[string]any, severity ...audit.Severity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, auditedCall{userID: userID, action: action})
}

func testSession() *session.Session {
	return &session.Session{
		ID:      "sess-1",
		UserID:  "user-1",
		TokenID: "token-1",
	}
}

func newGateRouter(validator SessionValidator, audits AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)

	policy := NewRoutePolicy(
		[]string{"/api/health"},
		[]string{"/api/admin", "DELETE /api/sessions"},
	)

	registry := validation.NewRegistry()
	registry.Register("PATCH", "/api/sessions/current", &validation.Schema{
		Name: "session metadata",
		Fields: map[string]validation.Field{
			"device_name": {Type: validation.TypeString, Required: true, Rules: "max=100"},
			"theme":       {Type: validation.TypeString},
		},
	})

	router := gin.New()
	router.Use(SecurityGate(validator, audits, registry, policy, logger.NewLogger()))

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/api/health", ok)
	router.GET("/api/widgets", ok)
	router.GET("/api/admin/audit-logs", ok)
	router.DELETE("/api/sessions", ok)
	router.PATCH("/api/sessions/current", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, constants.ContentTypeJSON, body)
	})

	return router
}

func doRequest(router *gin.Engine, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionHeaders() map[string]string {
	return map[string]string{
		constants.HeaderXSessionID: "sess-1",
		constants.HeaderXTokenID:   "token-1",
	}
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSecurityGate_PublicRoute(t *testing.T) {
	validator := &fakeValidator{}
	audits := &fakeAudits{}
	router := newGateRouter(validator, audits)

	w := doRequest(router, "GET", "/api/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, validator.calls)
	assert.Empty(t, audits.events)
	assert.Empty(t, audits.accesses)
}

func TestSecurityGate_MissingCredentials(t *testing.T) {
	validator := &fakeValidator{sess: testSession()}
	audits := &fakeAudits{}
	router := newGateRouter(validator, audits)

	t.Run("no headers at all", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/widgets", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, errors.CodeMissingCredentials, body.Error.Code)
	})

	t.Run("token header alone is not enough", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/widgets", nil, map[string]string{
			constants.HeaderXTokenID: "token-1",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("denial is recorded against the anonymous principal", func(t *testing.T) {
		require.NotEmpty(t, audits.events)
		assert.Equal(t, constants.AnonymousUserID, audits.events[0].userID)
		assert.Equal(t, "missing_credentials", audits.events[0].action)
	})

	t.Run("store is never consulted", func(t *testing.T) {
		assert.Zero(t, validator.calls)
	})
}

func TestSecurityGate_InvalidSession(t *testing.T) {
	validator := &fakeValidator{errs: []error{errors.NewInvalidSessionError()}}
	audits := &fakeAudits{}
	router := newGateRouter(validator, audits)

	w := doRequest(router, "GET", "/api/widgets", nil, sessionHeaders())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, errors.CodeInvalidSession, body.Error.Code)

	require.Len(t, audits.events, 1)
	assert.Equal(t, "invalid_session", audits.events[0].action)
	assert.Empty(t, audits.accesses)
}

func TestSecurityGate_ValidSession(t *testing.T) {
	validator := &fakeValidator{sess: testSession()}
	audits := &fakeAudits{}
	router := newGateRouter(validator, audits)

	w := doRequest(router, "GET", "/api/widgets", nil, sessionHeaders())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, validator.calls)
	assert.Empty(t, audits.events)

	require.Len(t, audits.accesses, 1)
	assert.Equal(t, "user-1", audits.accesses[0].userID)
	assert.Equal(t, "GET", audits.accesses[0].action)
	assert.Equal(t, "/api/widgets", audits.accesses[0].resource)
}

func TestSecurityGate_StaleTokenAfterRotation(t *testing.T) {
	// first presentation accepted, replay of the superseded token rejected
	validator := &fakeValidator{
		sess: testSession(),
		errs: []error{nil, errors.NewInvalidSessionError()},
	}
	audits := &fakeAudits{}
	router := newGateRouter(validator, audits)

	first := doRequest(router, "GET", "/api/widgets", nil, sessionHeaders())
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, "GET", "/api/widgets", nil, sessionHeaders())
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	body := decodeErrorBody(t, second)
	assert.Equal(t, errors.CodeInvalidSession, body.Error.Code)
}

func TestSecurityGate_SensitiveRoutes(t *testing.T) {
	t.Run("missing step-up token is denied", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		w := doRequest(router, "GET", "/api/admin/audit-logs", nil, sessionHeaders())

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, errors.CodeTwoFactorRequired, body.Error.Code)

		require.Len(t, audits.events, 1)
		assert.Equal(t, "step_up_required", audits.events[0].action)
		assert.Equal(t, "user-1", audits.events[0].userID)
		assert.Empty(t, audits.accesses)
	})

	t.Run("step-up token grants access", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		headers := sessionHeaders()
		headers[constants.HeaderXTwoFactor] = "totp-123456"
		w := doRequest(router, "GET", "/api/admin/audit-logs", nil, headers)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, audits.accesses, 1)
	})

	t.Run("method-qualified rule applies only to that method", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		w := doRequest(router, "DELETE", "/api/sessions", nil, sessionHeaders())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSecurityGate_BodyValidation(t *testing.T) {
	t.Run("missing required field is rejected with field detail", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		body := strings.NewReader(`{"theme":"dark"}`)
		w := doRequest(router, "PATCH", "/api/sessions/current", body, sessionHeaders())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decodeErrorBody(t, w)
		assert.Equal(t, errors.CodeSchemaMismatch, errBody.Error.Code)
		assert.Contains(t, errBody.Error.Fields, "device_name")

		require.Len(t, audits.events, 1)
		assert.Equal(t, "schema_mismatch", audits.events[0].action)
		assert.Empty(t, audits.accesses)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		body := strings.NewReader(`{"device_name":"laptop","is_admin":true}`)
		w := doRequest(router, "PATCH", "/api/sessions/current", body, sessionHeaders())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decodeErrorBody(t, w)
		assert.Contains(t, errBody.Error.Fields, "is_admin")
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		body := strings.NewReader(`{"device_name":`)
		w := doRequest(router, "PATCH", "/api/sessions/current", body, sessionHeaders())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decodeErrorBody(t, w)
		assert.Equal(t, errors.CodeSchemaMismatch, errBody.Error.Code)
	})

	t.Run("handler receives the sanitized body", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		body := strings.NewReader(`{"device_name":"<script>alert(1)</script>laptop"}`)
		w := doRequest(router, "PATCH", "/api/sessions/current", body, sessionHeaders())

		require.Equal(t, http.StatusOK, w.Code)
		var echoed map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echoed))
		assert.NotContains(t, echoed["device_name"], "<script>")
		assert.Contains(t, echoed["device_name"], "laptop")
	})

	t.Run("empty body skips schema validation", func(t *testing.T) {
		validator := &fakeValidator{sess: testSession()}
		audits := &fakeAudits{}
		router := newGateRouter(validator, audits)

		w := doRequest(router, "PATCH", "/api/sessions/current", bytes.NewReader(nil), sessionHeaders())
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRoutePolicy(t *testing.T) {
	policy := NewRoutePolicy(
		[]string{"/api/health", "GET /api/status"},
		[]string{"/api/admin", "DELETE /api/sessions"},
	)

	assert.True(t, policy.IsPublic("GET", "/api/health"))
	assert.True(t, policy.IsPublic("GET", "/api/status"))
	assert.False(t, policy.IsPublic("POST", "/api/status"))
	assert.False(t, policy.IsPublic("GET", "/api/widgets"))

	assert.True(t, policy.IsSensitive("GET", "/api/admin/audit-logs"))
	assert.True(t, policy.IsSensitive("DELETE", "/api/sessions"))
	assert.False(t, policy.IsSensitive("GET", "/api/sessions"))
}

func TestRoutePolicy_IgnoresBlankEntries(t *testing.T) {
	policy := NewRoutePolicy([]string{"", "  "}, nil)
	assert.False(t, policy.IsPublic("GET", "/"))
}
