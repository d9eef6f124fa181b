package models

import (
	"time"

	"github.com/lib/pq"
)

// ContentType classifies consultant content.
type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypeVideo    ContentType = "video"
	ContentTypePDF      ContentType = "pdf"
	ContentTypeTip      ContentType = "tip"
	ContentTypeGuide    ContentType = "guide"
	ContentTypeResource ContentType = "resource"
)

// ContentStatus is the moderation state of a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPending   ContentStatus = "pending"
	ContentStatusApproved  ContentStatus = "approved"
	ContentStatusRejected  ContentStatus = "rejected"
	ContentStatusPublished ContentStatus = "published"
)

// Content is a unit of knowledge published by a consultant.
type Content struct {
	ID              string         `db:"id" json:"id"`
	ConsultantID    string         `db:"consultant_id" json:"consultantId"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	ContentType     ContentType    `db:"content_type" json:"contentType"`
	Category        string         `db:"category" json:"category"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	ContentURL      *string        `db:"content_url" json:"contentUrl,omitempty"`
	ThumbnailURL    *string        `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	Text            *string        `db:"body_text" json:"text,omitempty"`
	DurationSeconds *int           `db:"duration_seconds" json:"duration,omitempty"`
	PageCount       *int           `db:"page_count" json:"pageCount,omitempty"`
	FileSizeBytes   *int64         `db:"file_size_bytes" json:"fileSize,omitempty"`
	IsFree          bool           `db:"is_free" json:"isFree"`
	Price           *int64         `db:"price" json:"price,omitempty"`
	Status          ContentStatus  `db:"status" json:"status"`
	ApprovedBy      *string        `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ViewCount       int64          `db:"view_count" json:"viewCount"`
	DownloadCount   int64          `db:"download_count" json:"downloadCount"`
	LikeCount       int64          `db:"like_count" json:"likeCount"`
	Rating          float64        `db:"rating" json:"rating"`
	RatingCount     int            `db:"rating_count" json:"ratingCount"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
	PublishedAt     *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
}

// IsPublished reports whether the item is publicly visible.
func (c *Content) IsPublished() bool {
	return c.Status == ContentStatusPublished
}

// ContentFilter captures listing criteria. Zero values are ignored.
type ContentFilter struct {
	ConsultantID string
	Status       ContentStatus
	ContentType  ContentType
	Category     string
	IsFree       *bool
	Tags         []string
	OrderBy      ContentOrder
	Page         int
	PageSize     int
}

// ContentRating is one user's rating of one content item.
type ContentRating struct {
	ID        string    `db:"id" json:"id"`
	ContentID string    `db:"content_id" json:"contentId"`
	UserID    string    `db:"user_id" json:"userId"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RatingSummary is the derived mean and count of a rating set.
type RatingSummary struct {
	Average float64
	Count   int
}

// SummarizeRatings returns the arithmetic mean of values, or zero for an empty set.
func SummarizeRatings(values []int) RatingSummary {
	if len(values) == 0 {
		return RatingSummary{}
	}
	total := 0
	for _, v := range values {
		total += v
	}
	return RatingSummary{Average: float64(total) / float64(len(values)), Count: len(values)}
}

// ContentStats aggregates a consultant's content portfolio.
type ContentStats struct {
	TotalContent     int     `json:"totalContent"`
	PublishedContent int     `json:"publishedContent"`
	PendingContent   int     `json:"pendingContent"`
	DraftContent     int     `json:"draftContent"`
	RejectedContent  int     `json:"rejectedContent"`
	TotalViews       int64   `json:"totalViews"`
	TotalDownloads   int64   `json:"totalDownloads"`
	TotalLikes       int64   `json:"totalLikes"`
	AverageRating    float64 `json:"averageRating"`
	TotalRatingCount int     `json:"totalRatingCount"`
}

// ComputeContentStats partitions items by status and averages ratings across published items that
// have at least one rating.
func ComputeContentStats(items []Content) ContentStats {
	var stats ContentStats
	var ratingSum float64
	var rated int
	for _, c := range items {
		stats.TotalContent++
		stats.TotalViews += c.ViewCount
		stats.TotalDownloads += c.DownloadCount
		stats.TotalLikes += c.LikeCount
		switch c.Status {
		case ContentStatusPublished:
			stats.PublishedContent++
			stats.TotalRatingCount += c.RatingCount
			if c.RatingCount > 0 {
				ratingSum += c.Rating
				rated++
			}
		case ContentStatusPending:
			stats.PendingContent++
		case ContentStatusDraft:
			stats.DraftContent++
		case ContentStatusRejected:
			stats.RejectedContent++
		}
	}
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}
	return stats
}

// ContentOrder selects the listing sort.
type ContentOrder string

const (
	// OrderPopular sorts by rating then views, used by the public catalogue.
	OrderPopular ContentOrder = "popular"
	// OrderNewest sorts by creation time descending.
	OrderNewest ContentOrder = "newest"
	// OrderOldest sorts by creation time ascending, used by the moderation queue.
	OrderOldest ContentOrder = "oldest"
)
