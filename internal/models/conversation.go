package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct chat between users. Members never changes after
// creation; Active lists the members who have not hidden it.
type Conversation struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Members   []uuid.UUID `json:"members"`
	Active    []uuid.UUID `json:"active_members"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// HasMember reports whether userID belongs to the conversation
func (c *Conversation) HasMember(userID uuid.UUID) bool {
	return slices.Contains(c.Members, userID)
}
