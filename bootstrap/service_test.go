package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobusker/gobusker-map/events"
)

func TestInitialize_WithoutBackingStores(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")
	t.Setenv("KEY_VAULT_NAME", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	ctx := context.Background()
	svc, err := Initialize(ctx, "gobusker-map-test", DefaultOptions())
	require.NoError(t, err)
	defer svc.Close(ctx)

	assert.Nil(t, svc.Redis)
	assert.Nil(t, svc.Postgres)
	assert.IsType(t, &events.MemorySource{}, svc.Events)
	assert.NotNil(t, svc.Places)

	rec := httptest.NewRecorder()
	svc.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"places"`)
}

func TestInitialize_ServesConfiguredSettings(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")
	t.Setenv("KEY_VAULT_NAME", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MAP_STYLE_DARK", "mapbox://styles/gobusker/night")
	t.Setenv("SUGGEST_DEBOUNCE", "200ms")
	t.Setenv("QUICK_CITIES", "Lund,Umeå")

	ctx := context.Background()
	svc, err := Initialize(ctx, "gobusker-map-test", DefaultOptions())
	require.NoError(t, err)
	defer svc.Close(ctx)

	rec := httptest.NewRecorder()
	svc.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"dark":"mapbox://styles/gobusker/night"`)
	assert.Contains(t, body, `"suggest_debounce_ms":200`)
	assert.Contains(t, body, `"quick_cities":["Lund","Umeå"]`)
}

func TestInitialize_MissingToken(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "")
	t.Setenv("KEY_VAULT_NAME", "")

	_, err := Initialize(context.Background(), "gobusker-map-test", DefaultOptions())
	assert.Error(t, err)
}
