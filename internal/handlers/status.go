package handlers

import (
	"net/http"

	"kelvin-backend/internal/models"
	"kelvin-backend/internal/quests"
	"kelvin-backend/internal/services"
)

type StatusHandler struct {
	relay   *services.Relay
	catalog *quests.Catalog
}

func NewStatusHandler(relay *services.Relay, catalog *quests.Catalog) *StatusHandler {
	return &StatusHandler{relay: relay, catalog: catalog}
}

func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusResponse{Message: "Kelvin Backend is running."})
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	relay := "disabled"
	if h.relay.Enabled() {
		relay = "enabled"
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status: "ok",
		Relay:  relay,
		Quests: h.catalog.Len(),
	})
}
