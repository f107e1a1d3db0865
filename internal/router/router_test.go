package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelvin-backend/internal/handlers"
	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/middleware"
	"kelvin-backend/internal/models"
	"kelvin-backend/internal/quests"
	"kelvin-backend/internal/safety"
	"kelvin-backend/internal/services"
)

const testOrigin = "http://localhost:3000"

func newTestRouter(t *testing.T) (http.Handler, *quests.Catalog) {
	t.Helper()
	return newTestRouterWithTrust(t, middleware.ProxyTrust{})
}

func newTestRouterWithTrust(t *testing.T, trust middleware.ProxyTrust) (http.Handler, *quests.Catalog) {
	t.Helper()
	catalog, err := quests.Default()
	require.NoError(t, err)

	m := metrics.New()
	relay := services.NewRelay(nil, services.RelayOptions{}, nil, m)
	limiter := middleware.NewMemoryLimiter(20, time.Minute)
	t.Cleanup(limiter.Close)

	return New(
		zap.NewNop(),
		handlers.NewStatusHandler(relay, catalog),
		handlers.NewQuestHandler(quests.NewPicker(catalog, nil), m),
		handlers.NewChatHandler(safety.NewScreener(), relay, nil, m),
		middleware.NewRateLimiter(limiter, nil, m),
		m,
		[]string{testOrigin},
		trust,
	), catalog
}

func TestRootEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Kelvin Backend is running."}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestQuestEndpoint(t *testing.T) {
	r, catalog := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quest/today", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var q models.Quest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&q))
	assert.True(t, catalog.Contains(q.Text))
	assert.Equal(t, quests.QuestID(q.Text), q.ID)
}

func TestChatEndpoint_RateLimitPerClient(t *testing.T) {
	r, _ := newTestRouter(t)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hello", "chat_history": []}`))
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	for i := 1; i <= 20; i++ {
		rr := send("192.0.2.10:40000")
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i)

		var resp models.ChatResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Equal(t, services.MisconfiguredReply, resp.Reply)
	}

	rr := send("192.0.2.10:40001")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var errBody models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errBody))
	assert.Equal(t, "RATE_LIMITED", errBody.Error.Code)
	assert.NotEmpty(t, errBody.Error.RequestID)

	// Other endpoints are not throttled.
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/quest/today", nil)
		req.RemoteAddr = "192.0.2.10:40002"
		qr := httptest.NewRecorder()
		r.ServeHTTP(qr, req)
		require.Equal(t, http.StatusOK, qr.Code)
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.11:40000").Code)
}

func TestChatEndpoint_ForgedForwardedHeaderSharesPeerQuota(t *testing.T) {
	r, _ := newTestRouter(t)

	admitted := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi", "chat_history": []}`))
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.101.%d", i+1))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			admitted++
		} else {
			require.Equal(t, http.StatusTooManyRequests, rr.Code)
		}
	}
	assert.Equal(t, 20, admitted)
}

func TestChatEndpoint_UntrustedPeerHeaderIgnored(t *testing.T) {
	trust, err := middleware.ParseProxyTrust(true, []string{"10.0.0.0/8"})
	require.NoError(t, err)
	r, _ := newTestRouterWithTrust(t, trust)

	admitted := 0
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi", "chat_history": []}`))
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			admitted++
		}
	}
	assert.Equal(t, 20, admitted)
}

func TestChatEndpoint_RealIPHeader(t *testing.T) {
	trust, err := middleware.ParseProxyTrust(true, []string{"10.0.0.0/8"})
	require.NoError(t, err)
	r, _ := newTestRouterWithTrust(t, trust)

	for i := 0; i < 21; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi", "chat_history": []}`))
		req.RemoteAddr = "10.0.0.1:1234" // proxy
		req.Header.Set("X-Forwarded-For", "198.51.100.20")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if i < 20 {
			require.Equal(t, http.StatusOK, rr.Code)
		} else {
			require.Equal(t, http.StatusTooManyRequests, rr.Code)
		}
	}

	// A different client behind the same proxy still has quota.
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi", "chat_history": []}`))
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.21")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflightOnChat(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quest/today", nil))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "kelvin_quests_served_total 1")
}

func TestNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
