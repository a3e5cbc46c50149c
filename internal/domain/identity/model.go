package identity

import (
	"errors"
	"time"
)

const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("profile already exists for user")
)

type Doctor struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	FullName           string    `json:"full_name"`
	Specialization     string    `json:"specialization"`
	VerificationStatus string    `json:"verification_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsApproved reports whether the doctor may be booked.
func (d *Doctor) IsApproved() bool {
	return d.VerificationStatus == VerificationApproved
}

type Patient struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

func validVerificationStatus(s string) bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}
