package dto

// CreateConversationRequest opens a direct conversation with ReceiverID
type CreateConversationRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type ConversationResponse struct {
	ID            string   `json:"id"`
	Members       []string `json:"members"`
	ActiveMembers []string `json:"active_members"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}
