package dto

import "github.com/noah-isme/consultant-content-api/internal/models"

// CreateReviewRequest defines the payload for reviewing a consultant.
type CreateReviewRequest struct {
	ConsultantID string `json:"consultantId" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"max=2000"`
	Recommend    *bool  `json:"recommend"`
}

// UpdateReviewRequest is a partial patch of a review.
type UpdateReviewRequest struct {
	Rating    *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
	Recommend *bool   `json:"recommend"`
}

// ReviewPage is a page of reviews with display details.
type ReviewPage struct {
	Items []models.ReviewDetail `json:"items"`
	Total int                   `json:"total"`
}
