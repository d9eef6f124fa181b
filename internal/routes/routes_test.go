package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/handler"
	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/service"
)

type testServer struct {
	router *gin.Engine
	store  *memoryStore
	tokens *service.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	tokens := service.NewTokenService(service.TokenConfig{Secret: "test-secret", Expiry: time.Hour})
	validate := validator.New()
	logger := zap.NewNop()

	contentSvc := service.NewContentService(memoryContentRepo{store}, nil, nil, nil, validate, logger, service.ContentServiceConfig{})
	reviewSvc := service.NewReviewService(memoryReviewRepo{store}, memoryBookingRepo{store}, memoryConsultantRepo{store}, nil, nil, nil, validate, logger, service.ReviewServiceConfig{})
	exportSvc := service.NewExportService(memoryReviewRepo{store}, logger, nil, nil)

	router := gin.New()
	Register(router, Dependencies{
		APIPrefix: "/api/v1",
		Tokens:    tokens,
		Audit:     memoryAuditRepo{store},
		Logger:    logger,
		Content:   handler.NewContentHandler(contentSvc),
		Reviews:   handler.NewReviewHandler(reviewSvc, exportSvc),
		Metrics: handler.NewMetricsHandler(service.NewMetricsService(), map[string]handler.Pinger{
			"database": handler.PingerFunc(func(context.Context) error { return nil }),
		}),
	})
	return &testServer{router: router, store: store, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token, _, err := s.tokens.Issue(userID, role, userID+"@example.com")
	require.NoError(t, err)
	return token
}

type envelope struct {
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func decode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestContentLifecycleEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	consultant := srv.token(t, "consultant-1", models.RoleConsultant)
	admin := srv.token(t, "admin-1", models.RoleAdmin)
	student1 := srv.token(t, "student-1", models.RoleStudent)
	student2 := srv.token(t, "student-2", models.RoleStudent)

	status, env := srv.do(t, http.MethodPost, "/api/v1/content", consultant, map[string]interface{}{
		"title": "How to ace interviews", "contentType": "article", "isFree": true,
	})
	require.Equal(t, http.StatusCreated, status)
	var created models.Content
	decode(t, env.Data, &created)
	assert.Equal(t, models.ContentStatusPending, created.Status)

	status, _ = srv.do(t, http.MethodGet, "/api/v1/content/published/"+created.ID, student1, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = srv.do(t, http.MethodPut, "/api/v1/content/"+created.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var approved models.Content
	decode(t, env.Data, &approved)
	assert.Equal(t, models.ContentStatusPublished, approved.Status)
	assert.NotNil(t, approved.PublishedAt)
	assert.Equal(t, "admin-1", *approved.ApprovedBy)
	require.Len(t, srv.store.audits, 1)
	assert.Equal(t, models.AuditActionContentApprove, srv.store.audits[0].Action)

	status, env = srv.do(t, http.MethodGet, "/api/v1/content/published/"+created.ID, student1, nil)
	require.Equal(t, http.StatusOK, status)
	var viewed models.Content
	decode(t, env.Data, &viewed)
	assert.Equal(t, int64(1), viewed.ViewCount)

	var rating struct {
		Rating      float64 `json:"rating"`
		RatingCount int     `json:"ratingCount"`
	}
	status, env = srv.do(t, http.MethodPost, "/api/v1/content/"+created.ID+"/rating", student1, map[string]int{"rating": 4})
	require.Equal(t, http.StatusOK, status)
	decode(t, env.Data, &rating)
	assert.Equal(t, 4.0, rating.Rating)
	assert.Equal(t, 1, rating.RatingCount)

	status, env = srv.do(t, http.MethodPost, "/api/v1/content/"+created.ID+"/rating", student2, map[string]int{"rating": 2})
	require.Equal(t, http.StatusOK, status)
	decode(t, env.Data, &rating)
	assert.Equal(t, 3.0, rating.Rating)
	assert.Equal(t, 2, rating.RatingCount)

	status, env = srv.do(t, http.MethodGet, "/api/v1/content/published", "", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []models.Content
	decode(t, env.Data, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, false, env.Meta["cacheHit"])

	status, env = srv.do(t, http.MethodGet, "/api/v1/content/my/stats", consultant, nil)
	require.Equal(t, http.StatusOK, status)
	var stats models.ContentStats
	decode(t, env.Data, &stats)
	assert.Equal(t, 1, stats.PublishedContent)
	assert.Equal(t, 2, stats.TotalRatingCount)
}

func TestContentAuthorization(t *testing.T) {
	srv := newTestServer(t)
	consultant := srv.token(t, "consultant-1", models.RoleConsultant)
	other := srv.token(t, "consultant-2", models.RoleConsultant)
	student := srv.token(t, "student-1", models.RoleStudent)
	admin := srv.token(t, "admin-1", models.RoleAdmin)

	status, _ := srv.do(t, http.MethodPost, "/api/v1/content", "", map[string]interface{}{"title": "x", "contentType": "tip"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = srv.do(t, http.MethodPost, "/api/v1/content", student, map[string]interface{}{"title": "x", "contentType": "tip"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env := srv.do(t, http.MethodPost, "/api/v1/content", consultant, map[string]interface{}{"title": "x", "contentType": "tip"})
	require.Equal(t, http.StatusCreated, status)
	var created models.Content
	decode(t, env.Data, &created)

	status, _ = srv.do(t, http.MethodPut, "/api/v1/content/"+created.ID, other, map[string]interface{}{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = srv.do(t, http.MethodDelete, "/api/v1/content/"+created.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = srv.do(t, http.MethodPut, "/api/v1/content/"+created.ID+"/reject", admin, map[string]string{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, _ = srv.do(t, http.MethodPut, "/api/v1/content/missing/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = srv.do(t, http.MethodPut, "/api/v1/content/"+created.ID+"/approve", consultant, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = srv.do(t, http.MethodPost, "/api/v1/content/"+created.ID+"/download", student, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "CONTENT_NOT_AVAILABLE", env.Error.Code)

	status, _ = srv.do(t, http.MethodPut, "/api/v1/content/"+created.ID+"/reject", admin, map[string]string{"reason": "needs sources"})
	require.Equal(t, http.StatusOK, status)
	status, env = srv.do(t, http.MethodPost, "/api/v1/content/"+created.ID+"/submit", consultant, nil)
	require.Equal(t, http.StatusOK, status)
	var resubmitted models.Content
	decode(t, env.Data, &resubmitted)
	assert.Equal(t, models.ContentStatusPending, resubmitted.Status)
	assert.Nil(t, resubmitted.RejectionReason)

	status, _ = srv.do(t, http.MethodDelete, "/api/v1/content/"+created.ID, consultant, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestReviewFlowEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	srv.store.bookings = []models.Booking{
		{ID: "b1", StudentID: "student-1", ConsultantID: "consultant-1", Status: models.BookingStatusCompleted, PaymentStatus: models.PaymentStatusPaid},
		{ID: "b2", StudentID: "student-2", ConsultantID: "consultant-1", Status: models.BookingStatusConfirmed, PaymentStatus: "pending"},
	}
	student1 := srv.token(t, "student-1", models.RoleStudent)
	student2 := srv.token(t, "student-2", models.RoleStudent)
	admin := srv.token(t, "admin-1", models.RoleAdmin)

	status, env := srv.do(t, http.MethodPost, "/api/v1/reviews", student2, map[string]interface{}{"consultantId": "consultant-1", "rating": 5})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "BOOKING_REQUIRED", env.Error.Code)

	status, env = srv.do(t, http.MethodPost, "/api/v1/reviews", student1, map[string]interface{}{"consultantId": "consultant-1", "rating": 5, "comment": "great"})
	require.Equal(t, http.StatusCreated, status)
	var review models.Review
	decode(t, env.Data, &review)
	assert.Equal(t, "b1", review.BookingID)
	assert.Equal(t, models.RatingSummary{Average: 5, Count: 1}, srv.store.consultant["consultant-1"])

	status, env = srv.do(t, http.MethodPost, "/api/v1/reviews", student1, map[string]interface{}{"consultantId": "consultant-1", "rating": 3})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_REVIEWED", env.Error.Code)

	status, _ = srv.do(t, http.MethodGet, "/api/v1/reviews/consultant/consultant-1", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = srv.do(t, http.MethodPut, "/api/v1/reviews/"+review.ID, student2, map[string]int{"rating": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = srv.do(t, http.MethodGet, "/api/v1/reviews/admin/all", student1, nil)
	assert.Equal(t, http.StatusForbidden, status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/admin/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reviews_")
	assert.Contains(t, rec.Body.String(), review.ID)

	status, _ = srv.do(t, http.MethodDelete, "/api/v1/reviews/"+review.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, models.RatingSummary{}, srv.store.consultant["consultant-1"])
	require.NotEmpty(t, srv.store.audits)
	assert.Equal(t, models.AuditActionReviewDelete, srv.store.audits[len(srv.store.audits)-1].Action)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	failing := gin.New()
	Register(failing, Dependencies{
		Metrics: handler.NewMetricsHandler(nil, map[string]handler.Pinger{
			"redis": handler.PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}),
		Content: handler.NewContentHandler(nil),
		Reviews: handler.NewReviewHandler(nil, nil),
	})
	rec := httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
