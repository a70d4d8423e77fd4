package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is the durable record of a chat message inside a conversation
type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id" db:"sender_id"`
	Text           string    `json:"text" db:"text"`
	Picture        *string   `json:"picture,omitempty" db:"picture"`
	Location       bool      `json:"location" db:"location"`
	Latitude       *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64  `json:"longitude,omitempty" db:"longitude"`
	Edited         bool      `json:"edited" db:"edited"`
	Deleted        bool      `json:"deleted" db:"deleted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
