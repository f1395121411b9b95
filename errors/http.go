package errors

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
)

var httpStatusMap = map[string]int{
	CodeInternal:    http.StatusInternalServerError,
	CodeNotFound:    http.StatusNotFound,
	CodeBadRequest:  http.StatusBadRequest,
	CodeValidation:  http.StatusBadRequest,
	CodeTransport:   http.StatusBadGateway,
	CodeStaleResult: http.StatusConflict,
	CodeInvalidDate: http.StatusUnprocessableEntity,
	CodeUnavailable: http.StatusServiceUnavailable,
	CodeRateLimited: http.StatusTooManyRequests,
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// ErrorBody contains the error details.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := httpStatusMap[appErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteError writes err as a JSON error response. Errors that are not AppErrors
// are reported as internal without leaking their message.
func WriteError(w http.ResponseWriter, err error, traceID string) {
	body := ErrorBody{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Details = appErr.Details
	}

	writeJSON(w, HTTPStatus(err), ErrorResponse{Error: body, TraceID: traceID})
}

// WriteErrorWithStatus writes an error response with an explicit status.
func WriteErrorWithStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
