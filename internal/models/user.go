package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a rider or driver account
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Hidden from JSON responses
	GoogleID     *string    `json:"google_id,omitempty" db:"google_id"`
	ProfilePic   *string    `json:"profile_pic,omitempty" db:"profile_pic"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// UserUpdate carries the editable profile fields; nil leaves a field as is.
type UserUpdate struct {
	Username    *string
	ProfilePic  *string
	DateOfBirth *time.Time
}
