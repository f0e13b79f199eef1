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

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/x", 200, time.Millisecond)
	m.RateLimitHit("/x", "ip")
	m.MessagePosted()
	m.MessagesRead(3)
	m.ApplicationTransition("accepted")
	m.Notification("team_message", "persisted")
	m.RequestStarted()()
	m.ConnectionOpened()()
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/api/teams/{id}", 200, 20*time.Millisecond)
	m.ApplicationTransition("accepted")
	m.ApplicationTransition("accepted")
	m.MessagesRead(4)
	done := m.ConnectionOpened()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.applications.WithLabelValues("accepted")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.readReceipts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsConnections))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.wsConnections))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `stackup_http_requests_total{method="GET",route="/api/teams/{id}",status="200"} 1`))
}
