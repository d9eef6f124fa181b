package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultant-content-api/internal/dto"
	"github.com/noah-isme/consultant-content-api/internal/middleware"
	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/service"
	"github.com/noah-isme/consultant-content-api/pkg/response"
)

type reviewService interface {
	Create(ctx context.Context, studentID string, req dto.CreateReviewRequest) (*models.Review, error)
	ListForConsultant(ctx context.Context, consultantID string, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, bool, error)
	ListMine(ctx context.Context, studentID string) ([]models.ReviewDetail, error)
	Update(ctx context.Context, id string, actor *models.JWTClaims, req dto.UpdateReviewRequest) (*models.Review, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	ListAll(ctx context.Context, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, error)
}

type reviewExporter interface {
	ExportReviews(ctx context.Context, format string) (*service.ExportFile, error)
}

// ReviewHandler serves consultant review endpoints.
type ReviewHandler struct {
	service  reviewService
	exporter reviewExporter
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(svc reviewService, exporter reviewExporter) *ReviewHandler {
	return &ReviewHandler{service: svc, exporter: exporter}
}

// Create godoc
// @Summary Review a consultant
// @Description Requires a paid booking in completed, confirmed, approved or accepted status.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	review, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "review created", review)
}

// ListForConsultant godoc
// @Summary List a consultant's reviews
// @Tags Reviews
// @Produce json
// @Param consultantId path string true "Consultant ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /reviews/consultant/{consultantId} [get]
func (h *ReviewHandler) ListForConsultant(c *gin.Context) {
	items, pagination, hit, err := h.service.ListForConsultant(c.Request.Context(), c.Param("consultantId"), pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.SetCacheHit(c, hit))
}

// ListMine godoc
// @Summary List own reviews
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/my-reviews [get]
func (h *ReviewHandler) ListMine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Update a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.UpdateReviewRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	review, err := h.service.Update(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "review updated", review)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Param id path string true "Review ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAll godoc
// @Summary List all reviews
// @Tags Reviews Admin
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/admin/all [get]
func (h *ReviewHandler) ListAll(c *gin.Context) {
	items, pagination, err := h.service.ListAll(c.Request.Context(), pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Export godoc
// @Summary Export all reviews
// @Tags Reviews Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/admin/export [get]
func (h *ReviewHandler) Export(c *gin.Context) {
	file, err := h.exporter.ExportReviews(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
