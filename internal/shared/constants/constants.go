package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderOrigin        = "Origin"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXSessionID    = "X-Session-ID"
	HeaderXTokenID      = "X-Token-ID"
	HeaderXTwoFactor    = "X-2FA-Token"
	HeaderXForwardedFor = "X-Forwarded-For"

	// Content Types
	ContentTypeJSON = "application/json"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeySessionID = "session_id"
	ContextKeyRequestID = "request_id"

	// Principal recorded for denials that happen before a session is established
	AnonymousUserID = "anonymous"

	// Database table names
	TableSessions  = "sessions"
	TableAuditLogs = "audit_logs"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgMissingCredentials  = "Session credentials are required"
	ErrMsgInvalidSession      = "Session is invalid or has expired"
	ErrMsgTwoFactorRequired   = "Two-factor authentication is required for this resource"
	ErrMsgValidationFailed    = "Request validation failed"
)
