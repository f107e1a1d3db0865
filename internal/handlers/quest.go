package handlers

import (
	"net/http"

	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/quests"
)

type QuestHandler struct {
	picker  *quests.Picker
	metrics *metrics.Metrics
}

func NewQuestHandler(picker *quests.Picker, m *metrics.Metrics) *QuestHandler {
	return &QuestHandler{picker: picker, metrics: m}
}

// Today returns a random quest. Every call is an independent draw.
func (h *QuestHandler) Today(w http.ResponseWriter, r *http.Request) {
	q := h.picker.Pick()
	h.metrics.QuestServed()
	writeJSON(w, http.StatusOK, q)
}
