package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/consultant-content-api/internal/models"
)

// ErrContentNotPublished is returned by guarded writes that only apply to published content.
var ErrContentNotPublished = errors.New("content not published")

const contentColumns = `id, consultant_id, title, description, content_type, category, tags, content_url, thumbnail_url,
        body_text, duration_seconds, page_count, file_size_bytes, is_free, price, status, approved_by, approved_at,
        rejection_reason, view_count, download_count, like_count, rating, rating_count, created_at, updated_at, published_at`

// ContentRepository manages persistence for consultant content and its ratings.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content item.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now
	if content.Tags == nil {
		content.Tags = pq.StringArray{}
	}
	const query = `INSERT INTO consultant_content (id, consultant_id, title, description, content_type, category, tags, content_url,
        thumbnail_url, body_text, duration_seconds, page_count, file_size_bytes, is_free, price, status, view_count,
        download_count, like_count, rating, rating_count, created_at, updated_at)
        VALUES (:id, :consultant_id, :title, :description, :content_type, :category, :tags, :content_url, :thumbnail_url,
        :body_text, :duration_seconds, :page_count, :file_size_bytes, :is_free, :price, :status, :view_count, :download_count,
        :like_count, :rating, :rating_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// FindByID fetches a content item. It returns sql.ErrNoRows when absent.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_content WHERE id = $1", contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		return nil, err
	}
	return &content, nil
}

// List returns content matching the filter together with the total match count.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Content, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ConsultantID != "" {
		args = append(args, filter.ConsultantID)
		conditions = append(conditions, fmt.Sprintf("consultant_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ContentType != "" {
		args = append(args, filter.ContentType)
		conditions = append(conditions, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.IsFree != nil {
		args = append(args, *filter.IsFree)
		conditions = append(conditions, fmt.Sprintf("is_free = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.StringArray(filter.Tags))
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var order string
	switch filter.OrderBy {
	case models.OrderPopular:
		order = "rating DESC, view_count DESC, created_at DESC"
	case models.OrderOldest:
		order = "created_at ASC"
	default:
		order = "created_at DESC"
	}

	page := models.PageParams{Page: filter.Page, Limit: filter.PageSize}
	if page.Limit > 100 {
		page.Limit = 0
	}
	page = page.Normalize(20, 100)

	query := fmt.Sprintf("SELECT %s FROM consultant_content WHERE %s ORDER BY %s LIMIT %d OFFSET %d", contentColumns, where, order, page.Limit, page.Offset())
	var items []models.Content
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list content: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM consultant_content WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}
	return items, total, nil
}

// ListAllByConsultant returns every item owned by the consultant regardless of status.
func (r *ContentRepository) ListAllByConsultant(ctx context.Context, consultantID string) ([]models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM consultant_content WHERE consultant_id = $1", contentColumns)
	var items []models.Content
	if err := r.db.SelectContext(ctx, &items, query, consultantID); err != nil {
		return nil, fmt.Errorf("list consultant content: %w", err)
	}
	return items, nil
}

// Update persists owner editable fields together with status and rejection reason.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE consultant_content SET title = :title, description = :description, content_type = :content_type,
        category = :category, tags = :tags, content_url = :content_url, thumbnail_url = :thumbnail_url, body_text = :body_text,
        duration_seconds = :duration_seconds, page_count = :page_count, file_size_bytes = :file_size_bytes, is_free = :is_free,
        price = :price, status = :status, rejection_reason = :rejection_reason, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, content)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return expectAffected(res)
}

// UpdateModeration persists a moderation decision.
func (r *ContentRepository) UpdateModeration(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE consultant_content SET status = :status, approved_by = :approved_by, approved_at = :approved_at,
        published_at = :published_at, rejection_reason = :rejection_reason, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, content)
	if err != nil {
		return fmt.Errorf("update content moderation: %w", err)
	}
	return expectAffected(res)
}

// Delete hard deletes a content item. Ratings are removed by the ON DELETE CASCADE foreign key.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM consultant_content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return expectAffected(res)
}

// IncrementViewCount bumps the view counter and returns the new value.
func (r *ContentRepository) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.GetContext(ctx, &views, `UPDATE consultant_content SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id)
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	return views, nil
}

// IncrementDownloadCount bumps the download counter of a published item. It returns
// ErrContentNotPublished when the item is missing or not published.
func (r *ContentRepository) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	var downloads int64
	err := r.db.GetContext(ctx, &downloads, `UPDATE consultant_content SET download_count = download_count + 1
        WHERE id = $1 AND status = $2 RETURNING download_count`, id, models.ContentStatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrContentNotPublished
		}
		return 0, fmt.Errorf("increment download count: %w", err)
	}
	return downloads, nil
}

// UpsertRating stores the caller's rating and recomputes the content aggregate in one transaction.
// The content row is locked first so concurrent raters serialise on the recompute.
func (r *ContentRepository) UpsertRating(ctx context.Context, rating *models.ContentRating) (models.RatingSummary, error) {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	rating.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var status models.ContentStatus
	if err := tx.GetContext(ctx, &status, `SELECT status FROM consultant_content WHERE id = $1 FOR UPDATE`, rating.ContentID); err != nil {
		return models.RatingSummary{}, err
	}
	if status != models.ContentStatusPublished {
		return models.RatingSummary{}, ErrContentNotPublished
	}

	const upsert = `INSERT INTO content_ratings (id, content_id, user_id, rating, comment, created_at)
        VALUES (:id, :content_id, :user_id, :rating, :comment, :created_at)
        ON CONFLICT (content_id, user_id)
        DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = EXCLUDED.created_at`
	if _, err := tx.NamedExecContext(ctx, upsert, rating); err != nil {
		return models.RatingSummary{}, fmt.Errorf("upsert rating: %w", err)
	}

	var values []int
	if err := tx.SelectContext(ctx, &values, `SELECT rating FROM content_ratings WHERE content_id = $1`, rating.ContentID); err != nil {
		return models.RatingSummary{}, fmt.Errorf("load ratings: %w", err)
	}
	summary := models.SummarizeRatings(values)

	if _, err := tx.ExecContext(ctx, `UPDATE consultant_content SET rating = $2, rating_count = $3 WHERE id = $1`,
		rating.ContentID, summary.Average, summary.Count); err != nil {
		return models.RatingSummary{}, fmt.Errorf("update content rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RatingSummary{}, fmt.Errorf("commit rating tx: %w", err)
	}
	return summary, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
