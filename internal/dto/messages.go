package dto

// CreateMessageRequest stores a chat message. Picture is a URL; uploads are
// handled elsewhere.
type CreateMessageRequest struct {
	ConversationID string   `json:"conversation_id"`
	Text           string   `json:"text"`
	Picture        *string  `json:"picture,omitempty"`
	Location       bool     `json:"location"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

// EditMessageRequest replaces a message's text
type EditMessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	SenderID       string   `json:"sender_id"`
	Text           string   `json:"text"`
	Picture        *string  `json:"picture,omitempty"`
	Location       bool     `json:"location"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Edited         bool     `json:"edited"`
	Deleted        bool     `json:"deleted"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type MessageListResponse struct {
	Messages   []MessageResponse `json:"messages"`
	Pagination Pagination        `json:"pagination"`
}
