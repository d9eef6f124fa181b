package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/consultant-content-api/internal/models"
)

// BookingRepository reads bookings owned by the booking service.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListBetween returns all bookings between a student and a consultant, oldest first.
func (r *BookingRepository) ListBetween(ctx context.Context, studentID, consultantID string) ([]models.Booking, error) {
	const query = `SELECT id, student_id, consultant_id, status, payment_status, created_at
        FROM bookings WHERE student_id = $1 AND consultant_id = $2 ORDER BY created_at ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, studentID, consultantID); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
