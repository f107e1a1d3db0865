package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kelvin-backend/internal/models"
	"kelvin-backend/internal/quests"
	"kelvin-backend/internal/services"
)

func TestRoot(t *testing.T) {
	h := NewStatusHandler(services.NewRelay(nil, services.RelayOptions{}, nil, nil), nil)

	rr := httptest.NewRecorder()
	h.Root(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Kelvin Backend is running."}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	catalog, err := quests.NewCatalog([]string{"A.", "B."})
	require.NoError(t, err)

	tests := []struct {
		name  string
		relay *services.Relay
		want  models.HealthResponse
	}{
		{"relay disabled", services.NewRelay(nil, services.RelayOptions{}, nil, nil), models.HealthResponse{Status: "ok", Relay: "disabled", Quests: 2}},
		{"relay enabled", services.NewRelay(&countingBackend{}, services.RelayOptions{}, nil, nil), models.HealthResponse{Status: "ok", Relay: "enabled", Quests: 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewStatusHandler(tc.relay, catalog).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			var got models.HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, tc.want, got)
		})
	}
}
