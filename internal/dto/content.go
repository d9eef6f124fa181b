package dto

import (
	"time"

	"github.com/noah-isme/consultant-content-api/internal/models"
)

// CreateContentRequest defines the payload for authoring content.
type CreateContentRequest struct {
	Title        string             `json:"title" validate:"required,max=200"`
	Description  string             `json:"description" validate:"max=5000"`
	ContentType  models.ContentType `json:"contentType" validate:"required,oneof=article video pdf tip guide resource"`
	Category     string             `json:"category" validate:"max=100"`
	Tags         []string           `json:"tags" validate:"max=20,dive,required,max=50"`
	ContentURL   *string            `json:"contentUrl" validate:"omitempty,url"`
	ThumbnailURL *string            `json:"thumbnailUrl" validate:"omitempty,url"`
	Text         *string            `json:"text"`
	Duration     *int               `json:"duration" validate:"omitempty,min=0"`
	PageCount    *int               `json:"pageCount" validate:"omitempty,min=0"`
	FileSize     *int64             `json:"fileSize" validate:"omitempty,min=0"`
	IsFree       *bool              `json:"isFree"`
	Price        *int64             `json:"price"`
}

// UpdateContentRequest is a partial patch; nil fields are left untouched.
type UpdateContentRequest struct {
	Title        *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string             `json:"description" validate:"omitempty,max=5000"`
	ContentType  *models.ContentType `json:"contentType" validate:"omitempty,oneof=article video pdf tip guide resource"`
	Category     *string             `json:"category" validate:"omitempty,max=100"`
	Tags         *[]string           `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	ContentURL   *string             `json:"contentUrl" validate:"omitempty,url"`
	ThumbnailURL *string             `json:"thumbnailUrl" validate:"omitempty,url"`
	Text         *string             `json:"text"`
	Duration     *int                `json:"duration" validate:"omitempty,min=0"`
	PageCount    *int                `json:"pageCount" validate:"omitempty,min=0"`
	FileSize     *int64              `json:"fileSize" validate:"omitempty,min=0"`
	IsFree       *bool               `json:"isFree"`
	Price        *int64              `json:"price"`
}

// RateContentRequest carries a 1..5 rating.
type RateContentRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// RejectContentRequest carries the mandatory rejection reason.
type RejectContentRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// RatingResult reports the content aggregate after a rating upsert.
type RatingResult struct {
	ContentID   string  `json:"contentId"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"ratingCount"`
}

// DownloadResult is returned when a download is counted.
type DownloadResult struct {
	DownloadURL   string     `json:"downloadUrl"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	DownloadCount int64      `json:"downloadCount"`
}

// ContentPage is the cached shape of a published listing page.
type ContentPage struct {
	Items []models.Content `json:"items"`
	Total int              `json:"total"`
}
