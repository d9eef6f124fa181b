package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultant-content-api/internal/dto"
	"github.com/noah-isme/consultant-content-api/internal/middleware"
	"github.com/noah-isme/consultant-content-api/internal/models"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
	"github.com/noah-isme/consultant-content-api/pkg/response"
)

type contentService interface {
	Create(ctx context.Context, consultantID string, req dto.CreateContentRequest) (*models.Content, error)
	GetPublished(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Content, error)
	ListPublished(ctx context.Context, filter models.ContentFilter) ([]models.Content, *models.Pagination, bool, error)
	ListByConsultant(ctx context.Context, consultantID string, filter models.ContentFilter) ([]models.Content, *models.Pagination, error)
	Update(ctx context.Context, id, ownerID string, req dto.UpdateContentRequest) (*models.Content, error)
	Submit(ctx context.Context, id, ownerID string) (*models.Content, error)
	Delete(ctx context.Context, id, ownerID string) error
	Approve(ctx context.Context, id, adminID string) (*models.Content, error)
	Reject(ctx context.Context, id, adminID, reason string) (*models.Content, error)
	ListPending(ctx context.Context, params models.PageParams) ([]models.Content, *models.Pagination, error)
	Download(ctx context.Context, id string) (*dto.DownloadResult, error)
	AddRating(ctx context.Context, id, userID string, req dto.RateContentRequest) (*dto.RatingResult, error)
	ConsultantStats(ctx context.Context, consultantID string) (*models.ContentStats, error)
}

// ContentHandler serves consultant content endpoints.
type ContentHandler struct {
	service contentService
}

// NewContentHandler creates a content handler.
func NewContentHandler(svc contentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// Create godoc
// @Summary Create content
// @Description Consultant authors a content item. New items await moderation.
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.CreateContentRequest true "Content payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /content [post]
func (h *ContentHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	content, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "content created and submitted for review", content)
}

// ListPublished godoc
// @Summary List published content
// @Tags Content
// @Produce json
// @Param contentType query string false "Content type"
// @Param category query string false "Category"
// @Param tags query string false "Comma separated tags, any of"
// @Param isFree query bool false "Free items only"
// @Param consultantId query string false "Consultant"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /content/published [get]
func (h *ContentHandler) ListPublished(c *gin.Context) {
	params := pageParams(c)
	filter := models.ContentFilter{
		ContentType:  models.ContentType(c.Query("contentType")),
		Category:     c.Query("category"),
		ConsultantID: c.Query("consultantId"),
		Tags:         splitQueryList(c.Query("tags")),
		Page:         params.Page,
		PageSize:     params.Limit,
	}
	if raw := c.Query("isFree"); raw != "" {
		isFree, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isFree must be true or false"))
			return
		}
		filter.IsFree = &isFree
	}

	items, pagination, hit, err := h.service.ListPublished(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.SetCacheHit(c, hit))
}

// GetPublished godoc
// @Summary Get content
// @Description Returns a published item and counts a view. Owners and admins may read unpublished items.
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/published/{id} [get]
func (h *ContentHandler) GetPublished(c *gin.Context) {
	content, err := h.service.GetPublished(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// ListMine godoc
// @Summary List own content
// @Tags Content
// @Produce json
// @Param status query string false "Status"
// @Param contentType query string false "Content type"
// @Param category query string false "Category"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /content/my [get]
func (h *ContentHandler) ListMine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	params := pageParams(c)
	items, pagination, err := h.service.ListByConsultant(c.Request.Context(), claims.UserID, models.ContentFilter{
		Status:      models.ContentStatus(c.Query("status")),
		ContentType: models.ContentType(c.Query("contentType")),
		Category:    c.Query("category"),
		Page:        params.Page,
		PageSize:    params.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Stats godoc
// @Summary Consultant content statistics
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /content/my/stats [get]
func (h *ContentHandler) Stats(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	stats, err := h.service.ConsultantStats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Update godoc
// @Summary Update content
// @Description Owner patch. Editing a published item sends it back to moderation.
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.UpdateContentRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id} [put]
func (h *ContentHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	content, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "content updated", content)
}

// Submit godoc
// @Summary Resubmit content for moderation
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id}/submit [post]
func (h *ContentHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	content, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "content submitted for review", content)
}

// Delete godoc
// @Summary Delete content
// @Tags Content
// @Param id path string true "Content ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve content
// @Tags Content Moderation
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id}/approve [put]
func (h *ContentHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	content, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "content approved and published", content)
}

// Reject godoc
// @Summary Reject content
// @Tags Content Moderation
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.RejectContentRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id}/reject [put]
func (h *ContentHandler) Reject(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RejectContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	content, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "content rejected", content)
}

// ListPending godoc
// @Summary Moderation queue
// @Tags Content Moderation
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /content/admin/pending [get]
func (h *ContentHandler) ListPending(c *gin.Context) {
	items, pagination, err := h.service.ListPending(c.Request.Context(), pageParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Download godoc
// @Summary Download content
// @Description Counts a download of published content and returns its link.
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id}/download [post]
func (h *ContentHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Rate godoc
// @Summary Rate content
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.RateContentRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /content/{id}/rating [post]
func (h *ContentHandler) Rate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.service.AddRating(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "rating added", result)
}
