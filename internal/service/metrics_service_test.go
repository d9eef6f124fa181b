package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsServiceRecordsDomainCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/content/published", http.StatusOK, 15*time.Millisecond)
	m.RecordModeration("approve")
	m.RecordModeration("approve")
	m.RecordReviewMutation("create")
	m.RecordContentEvent("download")
	m.RecordRecomputeFailure("inline")

	body := scrape(t, m)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/content/published",status="200"} 1`)
	assert.Contains(t, body, `content_moderation_decisions_total{decision="approve"} 2`)
	assert.Contains(t, body, `review_mutations_total{operation="create"} 1`)
	assert.Contains(t, body, `content_engagement_events_total{event="download"} 1`)
	assert.Contains(t, body, `rating_recompute_failures_total{stage="inline"} 1`)
}

func TestMetricsServiceNilReceiver(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.RecordModeration("reject")
		m.RecordReviewMutation("delete")
		m.RecordContentEvent("view")
		m.RecordRecomputeFailure("retry")
	})
}
