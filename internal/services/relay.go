package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/models"
)

// Persona is the behavioural preamble sent ahead of every conversation.
const Persona = "You are Kelvin, a supportive and empathetic companion. Your goal is to be a good listener and provide a safe space for users to reflect. Keep your responses concise (2-3 sentences). Do not give unsolicited advice. Your tone should be warm, encouraging, and gentle."

// User-facing replies used when the relay cannot answer.
const (
	MisconfiguredReply = "Sorry, the AI model is not configured correctly. Please check the server logs."
	FallbackReply      = "Sorry, I had trouble connecting to the AI model."
)

// ErrRelayDisabled is returned for every call when the relay was built
// without a language model backend.
var ErrRelayDisabled = errors.New("relay disabled: language model is not configured")

// Upstream failure kinds.
const (
	KindTimeout        = "timeout"
	KindUnavailable    = "unavailable"
	KindEmptyReply     = "empty_reply"
	KindBlocked        = "blocked"
	KindInvalidHistory = "invalid_history"
)

// UpstreamError describes why the language model produced no usable reply.
type UpstreamError struct {
	Kind string
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream " + e.Kind
	}
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ChatSession is one conversation with the language model, primed with the
// prior turns it was started from.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

// ChatBackend starts conversations with the language model.
type ChatBackend interface {
	StartSession(history []models.ChatTurn) ChatSession
}

type RelayOptions struct {
	// Timeout bounds a single call, including time spent waiting for a slot.
	Timeout time.Duration
	// MaxConcurrent caps in-flight upstream calls. Zero means unlimited.
	MaxConcurrent int
}

// Relay forwards a message and its history to the language model. It is
// built once at startup; with a nil backend it stays disabled for the life
// of the process.
type Relay struct {
	backend ChatBackend
	timeout time.Duration
	slots   chan struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRelay(backend ChatBackend, opts RelayOptions, logger *zap.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		backend: backend,
		timeout: opts.Timeout,
		logger:  logger,
		metrics: m,
	}
	if opts.MaxConcurrent > 0 {
		r.slots = make(chan struct{}, opts.MaxConcurrent)
	}
	return r
}

// Enabled reports whether the relay has a backend to talk to.
func (r *Relay) Enabled() bool { return r.backend != nil }

// Reply returns the model's text verbatim, or ErrRelayDisabled, or an
// *UpstreamError.
func (r *Relay) Reply(ctx context.Context, message string, history []models.ChatTurn) (string, error) {
	if r.backend == nil {
		return "", ErrRelayDisabled
	}

	turns, err := normalizeHistory(history)
	if err != nil {
		return "", &UpstreamError{Kind: KindInvalidHistory, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := r.acquire(ctx); err != nil {
		return "", r.fail(classify(err), start, len(turns))
	}
	defer r.release()

	reply, err := r.backend.StartSession(turns).SendMessage(ctx, message)
	if err != nil {
		return "", r.fail(classify(err), start, len(turns))
	}
	if strings.TrimSpace(reply) == "" {
		return "", r.fail(&UpstreamError{Kind: KindEmptyReply}, start, len(turns))
	}

	r.metrics.ObserveRelay("ok", start)
	r.logger.Debug("relay reply",
		zap.Int("history_turns", len(turns)),
		zap.Int("reply_len", len(reply)),
		zap.Duration("took", time.Since(start)),
	)
	return reply, nil
}

func (r *Relay) fail(err *UpstreamError, start time.Time, turns int) error {
	r.metrics.ObserveRelay(err.Kind, start)
	r.logger.Warn("relay call failed",
		zap.String("kind", err.Kind),
		zap.Int("history_turns", turns),
		zap.Duration("took", time.Since(start)),
		zap.Error(err.Err),
	)
	return err
}

func (r *Relay) acquire(ctx context.Context) error {
	if r.slots == nil {
		return nil
	}
	select {
	case r.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) release() {
	if r.slots == nil {
		return
	}
	<-r.slots
}

func classify(err error) *UpstreamError {
	var ue *UpstreamError
	switch {
	case errors.As(err, &ue):
		return ue
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &UpstreamError{Kind: KindTimeout, Err: err}
	default:
		return &UpstreamError{Kind: KindUnavailable, Err: err}
	}
}

// normalizeHistory maps "assistant" onto "model", drops turns without
// parts and rejects any other role.
func normalizeHistory(history []models.ChatTurn) ([]models.ChatTurn, error) {
	out := make([]models.ChatTurn, 0, len(history))
	for i, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		switch role {
		case models.RoleUser, models.RoleModel:
		case "assistant":
			role = models.RoleModel
		default:
			return nil, fmt.Errorf("turn %d has unknown role %q", i, turn.Role)
		}
		if len(turn.Parts) == 0 {
			continue
		}
		out = append(out, models.ChatTurn{Role: role, Parts: append([]string(nil), turn.Parts...)})
	}
	return out, nil
}
