package models

import "time"

// BookingStatus is the lifecycle state of a booking owned by the booking service.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatusPaid marks a settled booking.
const PaymentStatusPaid = "paid"

// ReviewableBookingStatuses lists the booking statuses that permit a review once paid.
var ReviewableBookingStatuses = []BookingStatus{
	BookingStatusCompleted,
	BookingStatusConfirmed,
	BookingStatusApproved,
	BookingStatusAccepted,
}

// Booking is read from the bookings table to enforce the review gate.
type Booking struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"studentId"`
	ConsultantID  string        `db:"consultant_id" json:"consultantId"`
	Status        BookingStatus `db:"status" json:"status"`
	PaymentStatus string        `db:"payment_status" json:"paymentStatus"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

// Qualifies reports whether the booking unlocks a review.
func (b Booking) Qualifies() bool {
	if b.PaymentStatus != PaymentStatusPaid {
		return false
	}
	for _, s := range ReviewableBookingStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}
