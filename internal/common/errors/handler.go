// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler normalizes failures at the HTTP boundary and writes them as
// structured JSON responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleRequestError converts err into a StandardError, logs it, and writes a
// JSON body with an HTTP status derived from the error code. Internal details
// stay in the log, never in the client body.
func (h *ErrorHandler) HandleRequestError(w http.ResponseWriter, requestID string, err error) {
	stdErr := h.normalizeError(err)

	h.logError(requestID, stdErr)

	body := map[string]interface{}{
		"error":      stdErr.Message,
		"response":   stdErr.Message,
		"request_id": requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(stdErr.Code))
	_ = json.NewEncoder(w).Encode(body)
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Sorry, I couldn't process that. Please try again.",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(requestID string, stdErr *StandardError) {
	fields := map[string]interface{}{
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	}
	if stdErr.Retryable {
		h.logger.Warn("Request failed", fields)
		return
	}
	h.logger.Error("Request failed", fields)
}

// StatusFor maps internal error codes to HTTP status codes.
func StatusFor(code ErrorCode) int {
	switch code {
	case ErrCodeValidationError, ErrCodeInvalidIntent:
		return http.StatusBadRequest
	case ErrCodeSectionNotFound, ErrCodeStudentNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeStoreConnectionFailed, ErrCodeStoreQueryFailed, ErrCodeStoreQueryTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
