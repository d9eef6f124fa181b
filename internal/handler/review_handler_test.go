package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultant-content-api/internal/dto"
	internalmiddleware "github.com/noah-isme/consultant-content-api/internal/middleware"
	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/service"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
)

type reviewServiceMock struct {
	createErr  error
	lastParams models.PageParams
	lastActor  *models.JWTClaims
}

func (m *reviewServiceMock) Create(ctx context.Context, studentID string, req dto.CreateReviewRequest) (*models.Review, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Review{ID: "r1", StudentID: studentID, ConsultantID: req.ConsultantID, Rating: req.Rating}, nil
}

func (m *reviewServiceMock) ListForConsultant(ctx context.Context, consultantID string, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, bool, error) {
	m.lastParams = params
	return []models.ReviewDetail{}, models.NewPagination(1, 20, 0), false, nil
}

func (m *reviewServiceMock) ListMine(ctx context.Context, studentID string) ([]models.ReviewDetail, error) {
	return []models.ReviewDetail{}, nil
}

func (m *reviewServiceMock) Update(ctx context.Context, id string, actor *models.JWTClaims, req dto.UpdateReviewRequest) (*models.Review, error) {
	m.lastActor = actor
	return &models.Review{ID: id}, nil
}

func (m *reviewServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	m.lastActor = actor
	return nil
}

func (m *reviewServiceMock) ListAll(ctx context.Context, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, error) {
	m.lastParams = params
	return []models.ReviewDetail{}, models.NewPagination(1, 50, 0), nil
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportReviews(ctx context.Context, format string) (*service.ExportFile, error) {
	m.format = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "reviews.csv", ContentType: "text/csv", Data: []byte("Review ID\n")}, nil
}

func buildReviewRouter(svc reviewService, exporter reviewExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "test-user", Role: models.UserRole(role)})
		}
		c.Next()
	})
	h := NewReviewHandler(svc, exporter)
	router.POST("/reviews", h.Create)
	router.GET("/reviews/consultant/:consultantId", h.ListForConsultant)
	router.PUT("/reviews/:id", h.Update)
	router.DELETE("/reviews/:id", h.Delete)
	router.GET("/reviews/admin/export", h.Export)
	return router
}

func TestReviewHandlerCreate(t *testing.T) {
	svc := &reviewServiceMock{}
	router := buildReviewRouter(svc, &exporterMock{})

	req, _ := http.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(`{"consultantId":"c1","rating":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"studentId":"test-user"`)

	svc.createErr = appErrors.Clone(appErrors.ErrDuplicate, "you have already reviewed this consultant")
	req, _ = http.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(`{"consultantId":"c1","rating":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), `"code":"ALREADY_REVIEWED"`)

	svc.createErr = appErrors.Clone(appErrors.ErrBookingNeeded, "you can only review consultants you have booked with")
	req, _ = http.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(`{"consultantId":"c1","rating":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	assert.Equal(t, http.StatusForbidden, performRequest(router, req).Code)
}

func TestReviewHandlerPagingAndActor(t *testing.T) {
	svc := &reviewServiceMock{}
	router := buildReviewRouter(svc, &exporterMock{})

	req, _ := http.NewRequest(http.MethodGet, "/reviews/consultant/c1?page=3&limit=7", nil)
	require.Equal(t, http.StatusOK, performRequest(router, req).Code)
	assert.Equal(t, models.PageParams{Page: 3, Limit: 7}, svc.lastParams)

	req, _ = http.NewRequest(http.MethodDelete, "/reviews/r1", nil)
	assert.Equal(t, http.StatusUnauthorized, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodDelete, "/reviews/r1", nil)
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, performRequest(router, req).Code)
	require.NotNil(t, svc.lastActor)
	assert.True(t, svc.lastActor.IsAdmin())
}

func TestReviewHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	router := buildReviewRouter(&reviewServiceMock{}, exporter)

	req, _ := http.NewRequest(http.MethodGet, "/reviews/admin/export?format=csv", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="reviews.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))

	req, _ = http.NewRequest(http.MethodGet, "/reviews/admin/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, performRequest(router, req).Code)
}
