package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/dto"
	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/repository"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
)

const (
	contentCacheNamespace = "published"
	defaultContentPage    = 20
	maxContentPage        = 100
)

type contentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	FindByID(ctx context.Context, id string) (*models.Content, error)
	List(ctx context.Context, filter models.ContentFilter) ([]models.Content, int, error)
	ListAllByConsultant(ctx context.Context, consultantID string) ([]models.Content, error)
	Update(ctx context.Context, content *models.Content) error
	UpdateModeration(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	IncrementDownloadCount(ctx context.Context, id string) (int64, error)
	UpsertRating(ctx context.Context, rating *models.ContentRating) (models.RatingSummary, error)
}

type downloadSigner interface {
	ObjectKey(rawURL string) (string, bool)
	PresignGet(key string) (string, time.Time, error)
}

// ContentServiceConfig tunes caching of the public catalogue.
type ContentServiceConfig struct {
	PublishedTTL time.Duration
}

// ContentService implements authoring, moderation and engagement for consultant content.
type ContentService struct {
	repo      contentRepository
	cache     *CacheService
	signer    downloadSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ContentServiceConfig
}

// NewContentService constructs a ContentService. cache, signer and metrics are optional.
func NewContentService(repo contentRepository, cache *CacheService, signer downloadSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ContentServiceConfig) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, cache: cache, signer: signer, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// Create stores new content in pending state awaiting moderation.
func (s *ContentService) Create(ctx context.Context, consultantID string, req dto.CreateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}

	isFree := req.IsFree == nil || *req.IsFree
	if req.IsFree == nil && req.Price != nil && *req.Price > 0 {
		isFree = false
	}
	price, err := normalizePrice(isFree, req.Price)
	if err != nil {
		return nil, err
	}

	content := &models.Content{
		ID:              uuid.NewString(),
		ConsultantID:    consultantID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		ContentType:     req.ContentType,
		Category:        strings.TrimSpace(req.Category),
		Tags:            normalizeTags(req.Tags),
		ContentURL:      req.ContentURL,
		ThumbnailURL:    req.ThumbnailURL,
		Text:            req.Text,
		DurationSeconds: req.Duration,
		PageCount:       req.PageCount,
		FileSizeBytes:   req.FileSize,
		IsFree:          isFree,
		Price:           price,
		Status:          models.ContentStatusPending,
	}
	if content.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}
	s.logger.Info("content created", zap.String("content_id", content.ID), zap.String("consultant_id", consultantID))
	return content, nil
}

// GetPublished returns content through the public read path, counting a view for published items.
// Unpublished items are visible only to their owner or an admin and never count views.
func (s *ContentService) GetPublished(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Content, error) {
	content, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !content.IsPublished() {
		if viewer != nil && (viewer.UserID == content.ConsultantID || viewer.IsAdmin()) {
			return content, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}

	views, err := s.repo.IncrementViewCount(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record view")
	}
	content.ViewCount = views
	s.metrics.RecordContentEvent("view")
	return content, nil
}

// ListPublished returns a page of the public catalogue ordered by rating then views.
// The boolean result reports whether the page came from cache.
func (s *ContentService) ListPublished(ctx context.Context, filter models.ContentFilter) ([]models.Content, *models.Pagination, bool, error) {
	filter.Status = models.ContentStatusPublished
	filter.OrderBy = models.OrderPopular
	filter.Tags = normalizeTags(filter.Tags)
	params := models.PageParams{Page: filter.Page, Limit: filter.PageSize}.Normalize(defaultContentPage, maxContentPage)
	filter.Page, filter.PageSize = params.Page, params.Limit
	if err := validateContentFilter(filter); err != nil {
		return nil, nil, false, err
	}

	key := publishedCacheKey(filter)
	var cached dto.ContentPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, models.NewPagination(params.Page, params.Limit, cached.Total), true, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}
	if items == nil {
		items = []models.Content{}
	}
	s.cache.Set(ctx, key, dto.ContentPage{Items: items, Total: total}, s.cfg.PublishedTTL)
	return items, models.NewPagination(params.Page, params.Limit, total), false, nil
}

// ListByConsultant returns the consultant's own content, newest first.
func (s *ContentService) ListByConsultant(ctx context.Context, consultantID string, filter models.ContentFilter) ([]models.Content, *models.Pagination, error) {
	filter.ConsultantID = consultantID
	filter.OrderBy = models.OrderNewest
	filter.IsFree = nil
	filter.Tags = nil
	params := models.PageParams{Page: filter.Page, Limit: filter.PageSize}.Normalize(defaultContentPage, maxContentPage)
	filter.Page, filter.PageSize = params.Page, params.Limit
	if err := validateContentFilter(filter); err != nil {
		return nil, nil, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}
	if items == nil {
		items = []models.Content{}
	}
	return items, models.NewPagination(params.Page, params.Limit, total), nil
}

// Update applies an owner's patch. Editing live content sends it back to moderation.
func (s *ContentService) Update(ctx context.Context, id, ownerID string, req dto.UpdateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	content, err := s.loadOwned(ctx, id, ownerID, "you can only update your own content")
	if err != nil {
		return nil, err
	}
	wasPublished := content.IsPublished()

	if req.Title != nil {
		content.Title = strings.TrimSpace(*req.Title)
		if content.Title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
		}
	}
	if req.Description != nil {
		content.Description = *req.Description
	}
	if req.ContentType != nil {
		content.ContentType = *req.ContentType
	}
	if req.Category != nil {
		content.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		content.Tags = normalizeTags(*req.Tags)
	}
	if req.ContentURL != nil {
		content.ContentURL = req.ContentURL
	}
	if req.ThumbnailURL != nil {
		content.ThumbnailURL = req.ThumbnailURL
	}
	if req.Text != nil {
		content.Text = req.Text
	}
	if req.Duration != nil {
		content.DurationSeconds = req.Duration
	}
	if req.PageCount != nil {
		content.PageCount = req.PageCount
	}
	if req.FileSize != nil {
		content.FileSizeBytes = req.FileSize
	}
	if req.IsFree != nil {
		content.IsFree = *req.IsFree
	}
	if req.Price != nil {
		content.Price = req.Price
	}
	if content.Price, err = normalizePrice(content.IsFree, content.Price); err != nil {
		return nil, err
	}

	if wasPublished {
		content.Status = models.ContentStatusPending
	}
	if err := s.repo.Update(ctx, content); err != nil {
		return nil, s.mapWriteError(err, "failed to update content")
	}
	if wasPublished {
		s.invalidatePublished(ctx)
	}
	return content, nil
}

// Submit sends draft or rejected content back to the moderation queue.
func (s *ContentService) Submit(ctx context.Context, id, ownerID string) (*models.Content, error) {
	content, err := s.loadOwned(ctx, id, ownerID, "you can only submit your own content")
	if err != nil {
		return nil, err
	}
	if content.Status != models.ContentStatusDraft && content.Status != models.ContentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("content in %s state cannot be submitted for review", content.Status))
	}
	content.Status = models.ContentStatusPending
	content.RejectionReason = nil
	if err := s.repo.Update(ctx, content); err != nil {
		return nil, s.mapWriteError(err, "failed to submit content")
	}
	return content, nil
}

// Delete hard deletes owned content together with its ratings.
func (s *ContentService) Delete(ctx context.Context, id, ownerID string) error {
	content, err := s.loadOwned(ctx, id, ownerID, "you can only delete your own content")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapWriteError(err, "failed to delete content")
	}
	if content.IsPublished() {
		s.invalidatePublished(ctx)
	}
	return nil
}

// Approve publishes content. Re-approving published content refreshes its moderation stamps.
func (s *ContentService) Approve(ctx context.Context, id, adminID string) (*models.Content, error) {
	content, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	content.Status = models.ContentStatusPublished
	content.ApprovedBy = &adminID
	content.ApprovedAt = &now
	content.PublishedAt = &now
	content.RejectionReason = nil
	if err := s.repo.UpdateModeration(ctx, content); err != nil {
		return nil, s.mapWriteError(err, "failed to approve content")
	}
	s.invalidatePublished(ctx)
	s.metrics.RecordModeration("approve")
	s.logger.Info("content approved", zap.String("content_id", id), zap.String("admin_id", adminID))
	return content, nil
}

// Reject moves content of any status to rejected. approvedBy records the acting admin.
func (s *ContentService) Reject(ctx context.Context, id, adminID, reason string) (*models.Content, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	content, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPublished := content.IsPublished()
	content.Status = models.ContentStatusRejected
	content.ApprovedBy = &adminID
	content.RejectionReason = &reason
	if err := s.repo.UpdateModeration(ctx, content); err != nil {
		return nil, s.mapWriteError(err, "failed to reject content")
	}
	if wasPublished {
		s.invalidatePublished(ctx)
	}
	s.metrics.RecordModeration("reject")
	s.logger.Info("content rejected", zap.String("content_id", id), zap.String("admin_id", adminID))
	return content, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *ContentService) ListPending(ctx context.Context, params models.PageParams) ([]models.Content, *models.Pagination, error) {
	params = params.Normalize(defaultContentPage, maxContentPage)
	items, total, err := s.repo.List(ctx, models.ContentFilter{
		Status:   models.ContentStatusPending,
		OrderBy:  models.OrderOldest,
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending content")
	}
	if items == nil {
		items = []models.Content{}
	}
	return items, models.NewPagination(params.Page, params.Limit, total), nil
}

// Download counts a download of published content and returns a link to the file.
func (s *ContentService) Download(ctx context.Context, id string) (*dto.DownloadResult, error) {
	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotAvailable
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if !content.IsPublished() {
		return nil, appErrors.ErrNotAvailable
	}

	count, err := s.repo.IncrementDownloadCount(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContentNotPublished) {
			return nil, appErrors.ErrNotAvailable
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record download")
	}
	s.metrics.RecordContentEvent("download")

	result := &dto.DownloadResult{DownloadCount: count}
	if content.ContentURL != nil {
		result.DownloadURL = *content.ContentURL
	}
	if s.signer != nil {
		if key, ok := s.signer.ObjectKey(result.DownloadURL); ok {
			signed, expiresAt, err := s.signer.PresignGet(key)
			if err != nil {
				s.logger.Warn("presign download failed", zap.String("content_id", id), zap.Error(err))
			} else {
				result.DownloadURL = signed
				result.ExpiresAt = &expiresAt
			}
		}
	}
	return result, nil
}

// AddRating upserts the caller's rating and returns the recomputed aggregate.
func (s *ContentService) AddRating(ctx context.Context, id, userID string, req dto.RateContentRequest) (*dto.RatingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	summary, err := s.repo.UpsertRating(ctx, &models.ContentRating{
		ContentID: id,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		case errors.Is(err, repository.ErrContentNotPublished):
			return nil, appErrors.ErrNotAvailable
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add rating")
		}
	}
	s.invalidatePublished(ctx)
	s.metrics.RecordContentEvent("rating")
	return &dto.RatingResult{ContentID: id, Rating: summary.Average, RatingCount: summary.Count}, nil
}

// ConsultantStats aggregates the consultant's portfolio.
func (s *ContentService) ConsultantStats(ctx context.Context, consultantID string) (*models.ContentStats, error) {
	items, err := s.repo.ListAllByConsultant(ctx, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content stats")
	}
	stats := models.ComputeContentStats(items)
	return &stats, nil
}

func (s *ContentService) load(ctx context.Context, id string) (*models.Content, error) {
	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return content, nil
}

func (s *ContentService) loadOwned(ctx context.Context, id, ownerID, denied string) (*models.Content, error) {
	content, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if content.ConsultantID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, denied)
	}
	return content, nil
}

func (s *ContentService) mapWriteError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ContentService) invalidatePublished(ctx context.Context) {
	s.cache.Invalidate(ctx, CachePattern(contentCacheNamespace))
}

func normalizePrice(isFree bool, price *int64) (*int64, error) {
	if isFree {
		return nil, nil
	}
	if price == nil || *price <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must be a positive amount in cents for paid content")
	}
	p := *price
	return &p, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func validateContentFilter(filter models.ContentFilter) error {
	switch filter.ContentType {
	case "", models.ContentTypeArticle, models.ContentTypeVideo, models.ContentTypePDF, models.ContentTypeTip, models.ContentTypeGuide, models.ContentTypeResource:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown content type %q", filter.ContentType))
	}
	switch filter.Status {
	case "", models.ContentStatusDraft, models.ContentStatusPending, models.ContentStatusApproved, models.ContentStatusRejected, models.ContentStatusPublished:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	return nil
}

func publishedCacheKey(filter models.ContentFilter) string {
	tags := append([]string(nil), filter.Tags...)
	sort.Strings(tags)
	free := "any"
	if filter.IsFree != nil {
		free = strconv.FormatBool(*filter.IsFree)
	}
	return CacheKey(contentCacheNamespace,
		"type="+string(filter.ContentType),
		"cat="+filter.Category,
		"consultant="+filter.ConsultantID,
		"free="+free,
		"tags="+strings.Join(tags, ","),
		"page="+strconv.Itoa(filter.Page),
		"limit="+strconv.Itoa(filter.PageSize),
	)
}
