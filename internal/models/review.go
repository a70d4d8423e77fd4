package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one user's rating of another user
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SubjectID uuid.UUID `json:"subject_id" db:"subject_id"` // the reviewed user
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Text      string    `json:"text" db:"text"`
	Rating    int       `json:"rating" db:"rating"` // 1 to 5
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
