package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/middleware"
	"kelvin-backend/internal/models"
	"kelvin-backend/internal/safety"
	"kelvin-backend/internal/services"
)

// maxChatBody bounds the request body; history is resent on every turn.
const maxChatBody = 1 << 20

type ChatHandler struct {
	screener *safety.Screener
	relay    *services.Relay
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewChatHandler(screener *safety.Screener, relay *services.Relay, logger *zap.Logger, m *metrics.Metrics) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		screener: screener,
		relay:    relay,
		logger:   logger,
		metrics:  m,
	}
}

// chatPayload mirrors models.ChatRequest with pointers so absent keys can be
// told apart from empty values. Both keys are required.
type chatPayload struct {
	Message     *string            `json:"message"`
	ChatHistory *[]models.ChatTurn `json:"chat_history"`
}

func (b chatPayload) missing() map[string]string {
	fields := make(map[string]string)
	if b.Message == nil {
		fields["message"] = "field required"
	}
	if b.ChatHistory == nil {
		fields["chat_history"] = "field required"
	}
	return fields
}

// Chat always answers 200 with a reply once the body parses. Relay failures
// become a friendly apology instead of an error status.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if fields := body.missing(); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}
	req := models.ChatRequest{Message: *body.Message, ChatHistory: *body.ChatHistory}

	if reply, matched := h.screener.Screen(req.Message); matched {
		h.logger.Info("crisis keyword detected, relay skipped",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.respond(w, metrics.SourceCrisis, reply)
		return
	}

	reply, err := h.relay.Reply(r.Context(), req.Message, req.ChatHistory)
	switch {
	case err == nil:
		h.respond(w, metrics.SourceRelay, reply)
	case errors.Is(err, services.ErrRelayDisabled):
		h.respond(w, metrics.SourceMisconfigured, services.MisconfiguredReply)
	default:
		h.logger.Error("error during Gemini API call",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Int("message_len", len(req.Message)),
			zap.Int("history_turns", len(req.ChatHistory)),
			zap.Error(err),
		)
		h.respond(w, metrics.SourceFallback, services.FallbackReply)
	}
}

func (h *ChatHandler) respond(w http.ResponseWriter, source, reply string) {
	h.metrics.ChatReply(source)
	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}
