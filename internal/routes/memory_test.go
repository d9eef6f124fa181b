package routes

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/consultant-content-api/internal/models"
	"github.com/noah-isme/consultant-content-api/internal/repository"
)

type memoryStore struct {
	mu         sync.Mutex
	content    map[string]*models.Content
	ratings    map[string]map[string]int
	reviews    map[string]*models.Review
	bookings   []models.Booking
	consultant map[string]models.RatingSummary
	audits     []*models.AuditLog
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		content:    map[string]*models.Content{},
		ratings:    map[string]map[string]int{},
		reviews:    map[string]*models.Review{},
		consultant: map[string]models.RatingSummary{},
	}
}

type memoryContentRepo struct{ s *memoryStore }

func (r memoryContentRepo) Create(ctx context.Context, content *models.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	content.CreatedAt = time.Now().UTC()
	content.UpdatedAt = content.CreatedAt
	copy := *content
	r.s.content[content.ID] = &copy
	return nil
}

func (r memoryContentRepo) FindByID(ctx context.Context, id string) (*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.content[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (r memoryContentRepo) List(ctx context.Context, filter models.ContentFilter) ([]models.Content, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Content
	for _, item := range r.s.content {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.ConsultantID != "" && item.ConsultantID != filter.ConsultantID {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, len(out), nil
}

func (r memoryContentRepo) ListAllByConsultant(ctx context.Context, consultantID string) ([]models.Content, error) {
	items, _, err := r.List(ctx, models.ContentFilter{ConsultantID: consultantID})
	return items, err
}

func (r memoryContentRepo) Update(ctx context.Context, content *models.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.content[content.ID]; !ok {
		return sql.ErrNoRows
	}
	content.UpdatedAt = time.Now().UTC()
	copy := *content
	r.s.content[content.ID] = &copy
	return nil
}

func (r memoryContentRepo) UpdateModeration(ctx context.Context, content *models.Content) error {
	return r.Update(ctx, content)
}

func (r memoryContentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.content[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.content, id)
	delete(r.s.ratings, id)
	return nil
}

func (r memoryContentRepo) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.content[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	item.ViewCount++
	return item.ViewCount, nil
}

func (r memoryContentRepo) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.content[id]
	if !ok || !item.IsPublished() {
		return 0, repository.ErrContentNotPublished
	}
	item.DownloadCount++
	return item.DownloadCount, nil
}

func (r memoryContentRepo) UpsertRating(ctx context.Context, rating *models.ContentRating) (models.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.content[rating.ContentID]
	if !ok {
		return models.RatingSummary{}, sql.ErrNoRows
	}
	if !item.IsPublished() {
		return models.RatingSummary{}, repository.ErrContentNotPublished
	}
	if r.s.ratings[rating.ContentID] == nil {
		r.s.ratings[rating.ContentID] = map[string]int{}
	}
	r.s.ratings[rating.ContentID][rating.UserID] = rating.Rating
	values := make([]int, 0, len(r.s.ratings[rating.ContentID]))
	for _, v := range r.s.ratings[rating.ContentID] {
		values = append(values, v)
	}
	summary := models.SummarizeRatings(values)
	item.Rating, item.RatingCount = summary.Average, summary.Count
	return summary, nil
}

type memoryReviewRepo struct{ s *memoryStore }

func (r memoryReviewRepo) Create(ctx context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review.CreatedAt = time.Now().UTC()
	review.UpdatedAt = review.CreatedAt
	copy := *review
	r.s.reviews[review.ID] = &copy
	return nil
}

func (r memoryReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review, ok := r.s.reviews[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *review
	return &copy, nil
}

func (r memoryReviewRepo) ExistsForPair(ctx context.Context, studentID, consultantID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, review := range r.s.reviews {
		if review.StudentID == studentID && review.ConsultantID == consultantID {
			return true, nil
		}
	}
	return false, nil
}

func (r memoryReviewRepo) Update(ctx context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copy := *review
	r.s.reviews[review.ID] = &copy
	return nil
}

func (r memoryReviewRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.reviews, id)
	return nil
}

func (r memoryReviewRepo) list(match func(*models.Review) bool) []models.ReviewDetail {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ReviewDetail
	for _, review := range r.s.reviews {
		if match(review) {
			out = append(out, models.ReviewDetail{Review: *review})
		}
	}
	return out
}

func (r memoryReviewRepo) ListByConsultant(ctx context.Context, consultantID string, limit, offset int) ([]models.ReviewDetail, int, error) {
	items := r.list(func(review *models.Review) bool { return review.ConsultantID == consultantID })
	return items, len(items), nil
}

func (r memoryReviewRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ReviewDetail, error) {
	return r.list(func(review *models.Review) bool { return review.StudentID == studentID }), nil
}

func (r memoryReviewRepo) ListAll(ctx context.Context, limit, offset int) ([]models.ReviewDetail, int, error) {
	items := r.list(func(*models.Review) bool { return true })
	return items, len(items), nil
}

type memoryBookingRepo struct{ s *memoryStore }

func (r memoryBookingRepo) ListBetween(ctx context.Context, studentID, consultantID string) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if b.StudentID == studentID && b.ConsultantID == consultantID {
			out = append(out, b)
		}
	}
	return out, nil
}

type memoryConsultantRepo struct{ s *memoryStore }

func (r memoryConsultantRepo) RefreshRating(ctx context.Context, consultantID string) (models.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ratings []int
	for _, review := range r.s.reviews {
		if review.ConsultantID == consultantID {
			ratings = append(ratings, review.Rating)
		}
	}
	summary := models.ConsultantAggregate(ratings)
	r.s.consultant[consultantID] = summary
	return summary, nil
}

type memoryAuditRepo struct{ s *memoryStore }

func (r memoryAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, log)
	return nil
}
