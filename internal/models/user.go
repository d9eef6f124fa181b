package models

import "math"

// UserRole represents the roles issued by the identity provider.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleConsultant UserRole = "consultant"
	RoleRecruiter  UserRole = "recruiter"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether the role is one the platform recognises.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleConsultant, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// UserProfile is the display subset of a users row joined into review listings.
type UserProfile struct {
	ID           string  `db:"id" json:"id"`
	Name         *string `db:"name" json:"name,omitempty"`
	Email        *string `db:"email" json:"email,omitempty"`
	ProfileImage *string `db:"profile_image" json:"profileImage,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination derives page counts from a total.
func NewPagination(page, limit, total int) *Pagination {
	p := &Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	p.HasNextPage = page*limit < total
	p.HasPrevPage = page > 1
	return p
}

// PageParams bounds user supplied paging input.
type PageParams struct {
	Page  int
	Limit int
}

// MaxOffset bounds the row offset any page may address.
const MaxOffset = math.MaxInt32

// Normalize clamps page to [1, MaxOffset/limit+1] and limit to [1, max], using def when limit is
// unset. Past-the-end pages stay past the end, so they read as empty instead of overflowing.
func (p PageParams) Normalize(def, max int) PageParams {
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if last := MaxOffset/p.Limit + 1; p.Page > last {
		p.Page = last
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
