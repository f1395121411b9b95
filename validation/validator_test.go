// Package validation provides input validation utilities.
package validation

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/gobusker/gobusker-map/errors"
)

func TestValidateLatitude(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		wantErr bool
	}{
		{"valid positive", 37.7749, false},
		{"valid negative", -33.8688, false},
		{"zero", 0, false},
		{"max", 90, false},
		{"min", -90, false},
		{"too high", 91, true},
		{"too low", -91, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVar(tt.lat, "latitude")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVar(%v, 'latitude') error = %v, wantErr %v", tt.lat, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLongitude(t *testing.T) {
	tests := []struct {
		name    string
		lng     float64
		wantErr bool
	}{
		{"valid positive", 122.4194, false},
		{"valid negative", -122.4194, false},
		{"zero", 0, false},
		{"max", 180, false},
		{"min", -180, false},
		{"too high", 181, true},
		{"too low", -181, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVar(tt.lng, "longitude")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVar(%v, 'longitude') error = %v, wantErr %v", tt.lng, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEventType(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		wantErr   bool
	}{
		{"solo", "solo_performance", false},
		{"open mic", "open_mic", false},
		{"venue", "venue_booking", false},
		{"invalid", "concert", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVar(tt.eventType, "event_type")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVar(%q, 'event_type') error = %v, wantErr %v", tt.eventType, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCountryCodes(t *testing.T) {
	tests := []struct {
		codes   string
		wantErr bool
	}{
		{"se", false},
		{"se,no,dk", false},
		{"SE", true},
		{"swe", true},
		{"se,", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateVar(tt.codes, "country_codes")
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVar(%q, 'country_codes') error = %v, wantErr %v", tt.codes, err, tt.wantErr)
		}
	}
}

func TestValidateEnums(t *testing.T) {
	if err := ValidateVar("bike", "travel_mode"); err != nil {
		t.Errorf("bike: %v", err)
	}
	if err := ValidateVar("train", "travel_mode"); err == nil {
		t.Error("train: expected error")
	}
	if err := ValidateVar("poi", "place_type"); err != nil {
		t.Errorf("poi: %v", err)
	}
	if err := ValidateVar("dark", "theme"); err != nil {
		t.Errorf("dark: %v", err)
	}
	if err := ValidateVar("sepia", "theme"); err == nil {
		t.Error("sepia: expected error")
	}
}

func TestValidateStruct(t *testing.T) {
	type TestRequest struct {
		Title     string  `json:"title" validate:"required,max=120"`
		Lat       float64 `json:"lat" validate:"latitude"`
		Lng       float64 `json:"lng" validate:"longitude"`
		EventType string  `json:"event_type" validate:"required,event_type"`
		RadiusKm  float64 `json:"radius_km" validate:"gt=0,lte=100"`
	}

	valid := TestRequest{
		Title:     "Sergels torg evening set",
		Lat:       59.3326,
		Lng:       18.0649,
		EventType: "solo_performance",
		RadiusKm:  5,
	}

	tests := []struct {
		name    string
		mutate  func(*TestRequest)
		wantErr bool
	}{
		{"valid request", func(*TestRequest) {}, false},
		{"invalid latitude", func(r *TestRequest) { r.Lat = 95 }, true},
		{"invalid event type", func(r *TestRequest) { r.EventType = "rave" }, true},
		{"zero radius", func(r *TestRequest) { r.RadiusKm = 0 }, true},
		{"missing required fields", func(r *TestRequest) { *r = TestRequest{RadiusKm: 1} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			errors, err := ValidateStruct(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && len(errors) == 0 {
				t.Error("ValidateStruct() expected validation errors but got none")
			}
		})
	}
}

func TestCheck(t *testing.T) {
	type TestRequest struct {
		Lat float64 `json:"lat" validate:"latitude"`
	}

	if err := Check(TestRequest{Lat: 10}); err != nil {
		t.Fatalf("Check() = %v", err)
	}

	err := Check(TestRequest{Lat: -100})
	if !apperrors.IsValidation(err) {
		t.Fatalf("Check() = %v, want validation error", err)
	}
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) || appErr.Details["lat"] == "" {
		t.Errorf("Check() details = %v, want entry for lat", appErr)
	}
}

func TestDecodeAndValidate(t *testing.T) {
	type TestRequest struct {
		Name      string `json:"name" validate:"required"`
		EventType string `json:"event_type" validate:"required,event_type"`
	}

	tests := []struct {
		name        string
		body        string
		contentType string
		wantOK      bool
		wantStatus  int
	}{
		{
			name:        "valid request",
			body:        `{"name": "Open mic", "event_type": "open_mic"}`,
			contentType: "application/json",
			wantOK:      true,
			wantStatus:  0,
		},
		{
			name:        "invalid json",
			body:        `{"name": invalid}`,
			contentType: "application/json",
			wantOK:      false,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "validation error",
			body:        `{"name": "", "event_type": "rave"}`,
			contentType: "application/json",
			wantOK:      false,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "wrong content type",
			body:        `name=John`,
			contentType: "application/x-www-form-urlencoded",
			wantOK:      false,
			wantStatus:  http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			var testReq TestRequest
			ok := DecodeAndValidate(w, req, &testReq)

			if ok != tt.wantOK {
				t.Errorf("DecodeAndValidate() = %v, want %v", ok, tt.wantOK)
			}

			if !ok && w.Code != tt.wantStatus {
				t.Errorf("DecodeAndValidate() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestParseValidationErrors(t *testing.T) {
	type TestStruct struct {
		Lng float64 `json:"lng" validate:"longitude"`
	}

	err := Validate(TestStruct{Lng: 200})
	if err == nil {
		t.Fatal("expected validation error")
	}

	errors := ParseValidationErrors(err)
	if len(errors) == 0 {
		t.Error("expected at least one validation error")
	}

	found := false
	for _, e := range errors {
		if e.Field == "lng" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected error for lng field")
	}
}
