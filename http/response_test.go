package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"zoom": 11})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"zoom":11}}`, rec.Body.String())
}

func TestList(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"items", []string{"Stockholm", "Malmö"}, `{"data":["Stockholm","Malmö"],"meta":{"count":2}}`},
		{"nil becomes empty", nil, `{"data":[],"meta":{"count":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			List(rec, tt.items)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestGeoJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	GeoJSON(rec, map[string]string{"type": "Feature"})

	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"Feature"}`, rec.Body.String())
}

func TestJSON_NilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusAccepted, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}
