package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/consultant-content-api/internal/models"
)

const reviewColumns = `r.id, r.student_id, r.consultant_id, r.booking_id, r.rating, r.comment, r.recommend, r.created_at, r.updated_at`

const reviewDetailJoins = `FROM reviews r
        LEFT JOIN users su ON su.id = r.student_id
        LEFT JOIN consultants c ON c.id = r.consultant_id`

const reviewDetailColumns = reviewColumns + `,
        su.name AS student_name, su.profile_image AS student_profile_image,
        c.name AS consultant_name, c.profile_image AS consultant_profile_image`

// ReviewRepository manages persistence for consultant reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. A second review for the same student and consultant violates
// the reviews_student_consultant_key constraint.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	const query = `INSERT INTO reviews (id, student_id, consultant_id, booking_id, rating, comment, recommend, created_at, updated_at)
        VALUES (:id, :student_id, :consultant_id, :booking_id, :rating, :comment, :recommend, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// FindByID fetches a review. It returns sql.ErrNoRows when absent.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews r WHERE r.id = $1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// ExistsForPair reports whether the student already reviewed the consultant.
func (r *ReviewRepository) ExistsForPair(ctx context.Context, studentID, consultantID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM reviews WHERE student_id = $1 AND consultant_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, consultantID); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// Update persists rating, comment and recommend.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviews SET rating = :rating, comment = :comment, recommend = :recommend, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, review)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return expectAffected(res)
}

// ListByConsultant returns a newest first page of a consultant's reviews with student details.
func (r *ReviewRepository) ListByConsultant(ctx context.Context, consultantID string, limit, offset int) ([]models.ReviewDetail, int, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.consultant_id = $1 ORDER BY r.created_at DESC LIMIT %d OFFSET %d",
		reviewDetailColumns, reviewDetailJoins, limit, offset)
	var reviews []models.ReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, consultantID); err != nil {
		return nil, 0, fmt.Errorf("list consultant reviews: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews WHERE consultant_id = $1`, consultantID); err != nil {
		return nil, 0, fmt.Errorf("count consultant reviews: %w", err)
	}
	return reviews, total, nil
}

// ListByStudent returns every review written by the student, newest first.
func (r *ReviewRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ReviewDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.student_id = $1 ORDER BY r.created_at DESC", reviewDetailColumns, reviewDetailJoins)
	var reviews []models.ReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, studentID); err != nil {
		return nil, fmt.Errorf("list student reviews: %w", err)
	}
	return reviews, nil
}

// ListAll returns a newest first page across all consultants. A non-positive limit returns every row.
func (r *ReviewRepository) ListAll(ctx context.Context, limit, offset int) ([]models.ReviewDetail, int, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY r.created_at DESC", reviewDetailColumns, reviewDetailJoins)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	var reviews []models.ReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews`); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}
