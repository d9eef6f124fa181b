package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/consultant-content-api/internal/models"
)

// ConsultantRepository maintains the rating aggregate stored on consultant profiles.
type ConsultantRepository struct {
	db *sqlx.DB
}

// NewConsultantRepository constructs a ConsultantRepository.
func NewConsultantRepository(db *sqlx.DB) *ConsultantRepository {
	return &ConsultantRepository{db: db}
}

// RefreshRating recomputes rating and total_reviews from all of the consultant's reviews.
// The consultant row is locked so concurrent review writes cannot interleave their recomputes.
func (r *ConsultantRepository) RefreshRating(ctx context.Context, consultantID string) (models.RatingSummary, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("begin consultant rating tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM consultants WHERE id = $1 FOR UPDATE`, consultantID); err != nil {
		return models.RatingSummary{}, fmt.Errorf("lock consultant %s: %w", consultantID, err)
	}

	var ratings []int
	if err := tx.SelectContext(ctx, &ratings, `SELECT rating FROM reviews WHERE consultant_id = $1`, consultantID); err != nil {
		return models.RatingSummary{}, fmt.Errorf("load consultant reviews: %w", err)
	}
	summary := models.ConsultantAggregate(ratings)

	if _, err := tx.ExecContext(ctx, `UPDATE consultants SET rating = $2, total_reviews = $3, updated_at = $4 WHERE id = $1`,
		consultantID, summary.Average, summary.Count, time.Now().UTC()); err != nil {
		return models.RatingSummary{}, fmt.Errorf("update consultant rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RatingSummary{}, fmt.Errorf("commit consultant rating tx: %w", err)
	}
	return summary, nil
}
