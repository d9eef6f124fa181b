package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/dto"
	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/repository"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
	"github.com/noah-isme/consultant-content-api/pkg/jobs"
)

const (
	reviewCacheNamespace  = "reviews"
	defaultConsultantPage = 20
	maxConsultantPage     = 100
	defaultAdminPage      = 50
	maxAdminPage          = 200

	// RatingRecomputeJob is the job type carried by consultant rating retries.
	RatingRecomputeJob = "consultant_rating_recompute"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	ExistsForPair(ctx context.Context, studentID, consultantID string) (bool, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	ListByConsultant(ctx context.Context, consultantID string, limit, offset int) ([]models.ReviewDetail, int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ReviewDetail, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.ReviewDetail, int, error)
}

type bookingReader interface {
	ListBetween(ctx context.Context, studentID, consultantID string) ([]models.Booking, error)
}

type consultantRatingRepository interface {
	RefreshRating(ctx context.Context, consultantID string) (models.RatingSummary, error)
}

type recomputeQueue interface {
	Enqueue(job jobs.Job) error
}

// ReviewServiceConfig tunes caching of public review listings.
type ReviewServiceConfig struct {
	ListTTL time.Duration
}

// ReviewService implements booking-gated consultant reviews.
type ReviewService struct {
	reviews     reviewRepository
	bookings    bookingReader
	consultants consultantRatingRepository
	queue       recomputeQueue
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ReviewServiceConfig
}

// NewReviewService constructs a ReviewService. queue, cache and metrics are optional.
func NewReviewService(reviews reviewRepository, bookings bookingReader, consultants consultantRatingRepository, queue recomputeQueue, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReviewServiceConfig) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:     reviews,
		bookings:    bookings,
		consultants: consultants,
		queue:       queue,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Create records a student's review after verifying a paid qualifying booking exists.
func (s *ReviewService) Create(ctx context.Context, studentID string, req dto.CreateReviewRequest) (*models.Review, error) {
	if req.ConsultantID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "consultantId and rating are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}

	booking, err := s.qualifyingBooking(ctx, studentID, req.ConsultantID)
	if err != nil {
		return nil, err
	}

	exists, err := s.reviews.ExistsForPair(ctx, studentID, req.ConsultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, duplicateReviewError()
	}

	recommend := true
	if req.Recommend != nil {
		recommend = *req.Recommend
	}
	review := &models.Review{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		ConsultantID: req.ConsultantID,
		BookingID:    booking.ID,
		Rating:       req.Rating,
		Comment:      req.Comment,
		Recommend:    recommend,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateReviewError()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	s.afterMutation(ctx, review.ConsultantID, "create")
	s.logger.Info("review created", zap.String("review_id", review.ID), zap.String("consultant_id", review.ConsultantID))
	return review, nil
}

// ListForConsultant returns a page of a consultant's reviews, newest first.
func (s *ReviewService) ListForConsultant(ctx context.Context, consultantID string, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, bool, error) {
	params = params.Normalize(defaultConsultantPage, maxConsultantPage)
	key := CacheKey(reviewCacheNamespace, consultantID, strconv.Itoa(params.Page), strconv.Itoa(params.Limit))

	var cached dto.ReviewPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, models.NewPagination(params.Page, params.Limit, cached.Total), true, nil
	}

	items, total, err := s.reviews.ListByConsultant(ctx, consultantID, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	for i := range items {
		items[i].StudentName = fallbackName(items[i].StudentName, "Anonymous")
		items[i].ConsultantName = nil
		items[i].ConsultantProfileImage = nil
	}
	if items == nil {
		items = []models.ReviewDetail{}
	}
	s.cache.Set(ctx, key, dto.ReviewPage{Items: items, Total: total}, s.cfg.ListTTL)
	return items, models.NewPagination(params.Page, params.Limit, total), false, nil
}

// ListMine returns the student's reviews with consultant display details.
func (s *ReviewService) ListMine(ctx context.Context, studentID string) ([]models.ReviewDetail, error) {
	items, err := s.reviews.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	for i := range items {
		items[i].ConsultantName = fallbackName(items[i].ConsultantName, "Unknown")
		items[i].StudentName = fallbackName(items[i].StudentName, "You")
	}
	if items == nil {
		items = []models.ReviewDetail{}
	}
	return items, nil
}

// Update patches a review. Only its author or an admin may edit it.
func (s *ReviewService) Update(ctx context.Context, id string, actor *models.JWTClaims, req dto.UpdateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	review, err := s.loadForActor(ctx, id, actor, "you can only update your own reviews")
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if req.Recommend != nil {
		review.Recommend = *req.Recommend
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}

	s.afterMutation(ctx, review.ConsultantID, "update")
	return review, nil
}

// Delete removes a review. Only its author or an admin may delete it.
func (s *ReviewService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	review, err := s.loadForActor(ctx, id, actor, "you can only delete your own reviews")
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	s.afterMutation(ctx, review.ConsultantID, "delete")
	return nil
}

// ListAll returns every review for administrators, newest first.
func (s *ReviewService) ListAll(ctx context.Context, params models.PageParams) ([]models.ReviewDetail, *models.Pagination, error) {
	params = params.Normalize(defaultAdminPage, maxAdminPage)
	items, total, err := s.reviews.ListAll(ctx, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	if items == nil {
		items = []models.ReviewDetail{}
	}
	return items, models.NewPagination(params.Page, params.Limit, total), nil
}

// RecomputeConsultantRating refreshes the consultant aggregate. A failure is logged, counted and
// queued for retry; it is never returned to the caller.
func (s *ReviewService) RecomputeConsultantRating(ctx context.Context, consultantID string) {
	summary, err := s.consultants.RefreshRating(ctx, consultantID)
	if err == nil {
		s.logger.Debug("consultant rating refreshed",
			zap.String("consultant_id", consultantID),
			zap.Float64("rating", summary.Average),
			zap.Int("total_reviews", summary.Count))
		return
	}

	s.metrics.RecordRecomputeFailure("inline")
	s.logger.Warn("consultant rating recompute failed", zap.String("consultant_id", consultantID), zap.Error(err))
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Key: consultantID, Type: RatingRecomputeJob, Payload: consultantID}
	if qerr := s.queue.Enqueue(job); qerr != nil {
		s.logger.Error("enqueue consultant rating recompute failed", zap.String("consultant_id", consultantID), zap.Error(qerr))
	}
}

// NewRatingRecomputeHandler returns the queue handler that retries consultant rating recomputes.
func NewRatingRecomputeHandler(consultants consultantRatingRepository, metrics *MetricsService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		consultantID, ok := job.Payload.(string)
		if !ok || consultantID == "" {
			return fmt.Errorf("invalid %s payload %v", RatingRecomputeJob, job.Payload)
		}
		if _, err := consultants.RefreshRating(ctx, consultantID); err != nil {
			metrics.RecordRecomputeFailure("retry")
			return err
		}
		return nil
	}
}

func (s *ReviewService) qualifyingBooking(ctx context.Context, studentID, consultantID string) (*models.Booking, error) {
	bookings, err := s.bookings.ListBetween(ctx, studentID, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check bookings")
	}
	if len(bookings) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBookingNeeded, "you can only review consultants you have booked with")
	}
	for i := range bookings {
		if bookings[i].Qualifies() {
			return &bookings[i], nil
		}
	}
	observed := bookings[0]
	status, payment := string(observed.Status), observed.PaymentStatus
	if status == "" {
		status = "unknown"
	}
	if payment == "" {
		payment = "unknown"
	}
	return nil, appErrors.Clone(appErrors.ErrBookingNeeded, fmt.Sprintf(
		"you can only review consultants you have confirmed and paid bookings with; booking status: %s, payment status: %s",
		status, payment))
}

func (s *ReviewService) loadForActor(ctx context.Context, id string, actor *models.JWTClaims, denied string) (*models.Review, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.StudentID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, denied)
	}
	return review, nil
}

func (s *ReviewService) afterMutation(ctx context.Context, consultantID, op string) {
	s.RecomputeConsultantRating(ctx, consultantID)
	s.cache.Invalidate(ctx, CachePattern(reviewCacheNamespace, consultantID))
	s.metrics.RecordReviewMutation(op)
}

func duplicateReviewError() error {
	return appErrors.Clone(appErrors.ErrDuplicate, "you have already reviewed this consultant; update your existing review instead")
}

func fallbackName(name *string, fallback string) *string {
	if name != nil && *name != "" {
		return name
	}
	return &fallback
}
