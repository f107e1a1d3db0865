package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ChatReply(SourceCrisis)
	m.ChatReply(SourceCrisis)
	m.ChatReply(SourceRelay)
	m.RateLimited()
	m.QuestServed()
	m.ObserveRelay("ok", time.Now().Add(-time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatReplies.WithLabelValues(SourceCrisis)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatReplies.WithLabelValues(SourceRelay)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questsServed))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChatReply(SourceFallback)
		m.RateLimited()
		m.QuestServed()
		m.ObserveRelay("timeout", time.Now())
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.QuestServed()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "kelvin_quests_served_total 1"))
}
