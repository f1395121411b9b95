package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeBadRequest, "invalid input"),
			want: "BAD_REQUEST: invalid input",
		},
		{
			name: "with wrapped error",
			err:  Transport(errors.New("connection reset"), "geocoding request failed"),
			want: "TRANSPORT_ERROR: geocoding request failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("dial tcp: timeout")
	appErr := Transport(underlying, "route request failed")

	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should reach the underlying error")
	}
	if New(CodeNotFound, "x").Unwrap() != nil {
		t.Error("Unwrap() should return nil for unwrapped error")
	}
}

func TestAppError_Is(t *testing.T) {
	err1 := NotFound("location")
	err2 := NotFound("route")
	err3 := BadRequest("bad request")

	if !errors.Is(err1, err2) {
		t.Error("errors with same code should match")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different code should not match")
	}
	if err1.Is(errors.New("plain")) {
		t.Error("AppError should not match non-AppError")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode string
	}{
		{"Internal", Internal("boom"), CodeInternal},
		{"NotFound", NotFound("location"), CodeNotFound},
		{"BadRequest", BadRequest("bad input"), CodeBadRequest},
		{"Validation", Validation("invalid"), CodeValidation},
		{"Transport", Transport(nil, "down"), CodeTransport},
		{"Stale", Stale("superseded"), CodeStaleResult},
		{"InvalidDate", InvalidDate("tomorrow-ish", nil), CodeInvalidDate},
		{"Unavailable", Unavailable("circuit open"), CodeUnavailable},
		{"RateLimited", RateLimited("slow down"), CodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	if got := NotFound("location").Message; got != "location not found" {
		t.Errorf("Message = %q, want %q", got, "location not found")
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", NotFound("location"))

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt wrapping")
	}
	if IsTransport(wrapped) {
		t.Error("IsTransport should be false for NotFound")
	}
	if !IsTransport(Transport(errors.New("eof"), "decode")) {
		t.Error("IsTransport should be true for Transport")
	}
	if !IsValidation(ValidationWithDetails("bad", map[string]string{"lat": "range"})) {
		t.Error("IsValidation should be true for ValidationWithDetails")
	}
	if Code(errors.New("plain")) != "" || Code(nil) != "" {
		t.Error("Code should be empty for non-AppError")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", NotFound("location"), http.StatusNotFound, CodeNotFound},
		{"transport", Transport(errors.New("eof"), "provider failed"), http.StatusBadGateway, CodeTransport},
		{"validation", Validation("lat out of range"), http.StatusBadRequest, CodeValidation},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err, "trace-1")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.wantCode) {
				t.Errorf("body %s missing code %s", body, tt.wantCode)
			}
			if strings.Contains(body, "secret detail") {
				t.Error("plain error message must not leak")
			}
		})
	}
}
