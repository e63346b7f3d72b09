package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/shared/errors"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorBody is the envelope for every error response. Code is one of the
// stable taxonomy strings; Fields carries per-field validation detail.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo represents error information in an API error response
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SuccessResponse sends a successful response with custom status code
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	}

	c.JSON(statusCode, response)
}

// NoContentResponse sends a no content response. The status is flushed
// immediately so callers outside a running engine observe it as well.
func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// ErrorResponse sends an error response with the given taxonomy code and message
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorBody{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// ErrorResponseWithError sends an error response mapped from the error taxonomy.
// Any error outside the taxonomy collapses to internal/unknown so internal
// details never leak to the client.
func ErrorResponseWithError(c *gin.Context, err error) {
	secErr := errors.AsSecurityError(err)
	c.JSON(secErr.Code, ErrorBody{
		Error: ErrorInfo{
			Code:    secErr.SecurityCode,
			Message: secErr.Message,
			Fields:  secErr.Fields,
		},
	})
}
