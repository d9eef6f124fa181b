package models

import (
	"math"
	"time"
)

// Review is a student's opinion of a consultant, gated by a paid booking.
type Review struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"studentId"`
	ConsultantID string    `db:"consultant_id" json:"consultantId"`
	BookingID    string    `db:"booking_id" json:"bookingId"`
	Rating       int       `db:"rating" json:"rating"`
	Comment      string    `db:"comment" json:"comment"`
	Recommend    bool      `db:"recommend" json:"recommend"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// ReviewDetail carries display data joined from users and consultants.
type ReviewDetail struct {
	Review
	StudentName            *string `db:"student_name" json:"studentName"`
	StudentProfileImage    *string `db:"student_profile_image" json:"studentProfileImage"`
	ConsultantName         *string `db:"consultant_name" json:"consultantName,omitempty"`
	ConsultantProfileImage *string `db:"consultant_profile_image" json:"consultantProfileImage,omitempty"`
}

// ConsultantAggregate computes a consultant's displayed rating rounded to one decimal.
func ConsultantAggregate(ratings []int) RatingSummary {
	s := SummarizeRatings(ratings)
	s.Average = math.Round(s.Average*10) / 10
	return s
}
