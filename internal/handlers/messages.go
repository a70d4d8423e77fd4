package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/utils"
)

const maxMessageText = 4000

// MessageRepository stores chat history.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	Edit(ctx context.Context, id, senderID uuid.UUID, text string) (*models.Message, error)
	SoftDelete(ctx context.Context, id, senderID uuid.UUID) (*models.Message, error)
}

// MessagesHandler persists chat messages. Live delivery goes through the
// socket; this is the durable history. Only conversation members may read
// or post.
type MessagesHandler struct {
	repo    MessageRepository
	members ConversationMembership
	logger  *slog.Logger
	now     func() time.Time
}

func NewMessagesHandler(repo MessageRepository, members ConversationMembership, logger *slog.Logger) *MessagesHandler {
	return &MessagesHandler{repo: repo, members: members, logger: logger, now: time.Now}
}

// CreateMessage stores a message sent by the caller
// @Summary Store a chat message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateMessageRequest true "Message"
// @Success 201 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/messages [post]
func (h *MessagesHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var req dto.CreateMessageRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	convID, ok := conversationIDParam(w, req.ConversationID)
	if !ok {
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	hasPicture := req.Picture != nil && strings.TrimSpace(*req.Picture) != ""
	if req.Text == "" && !hasPicture && !req.Location {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "message needs text, a picture or a location")
		return
	}
	if len(req.Text) > maxMessageText {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "text is too long")
		return
	}
	if req.Location && (req.Latitude == nil || req.Longitude == nil) {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "latitude and longitude are required for a location")
		return
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) ||
		req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "coordinates out of range")
		return
	}

	if !h.requireMember(w, r, convID, userID) {
		return
	}

	now := h.now().UTC()
	m := &models.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       userID,
		Text:           req.Text,
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if hasPicture {
		m.Picture = req.Picture
	}
	if err := h.repo.Create(r.Context(), m); err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, toMessageResponse(m))
}

// ListMessages returns a conversation's history, oldest first
// @Summary List chat messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param conversation_id query string true "Conversation ID"
// @Param limit query int false "default 50 (max 200)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.MessageListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/messages [get]
func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	q := r.URL.Query()
	convID, ok := conversationIDParam(w, q.Get("conversation_id"))
	if !ok {
		return
	}
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil || limit <= 0 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "limit must be a positive integer")
		return
	}
	if limit > 200 {
		limit = 200
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "offset must be a non-negative integer")
		return
	}

	if !h.requireMember(w, r, convID, userID) {
		return
	}

	msgs, err := h.repo.ListByConversation(r.Context(), convID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageResponse(&msgs[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageListResponse{
		Messages:   out,
		Pagination: dto.Pagination{Limit: limit, Offset: offset},
	})
}

// EditMessage replaces the text of one of the caller's messages
// @Summary Edit a chat message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param request body dto.EditMessageRequest true "New text"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/messages/{id} [put]
func (h *MessagesHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}
	id, ok := messageIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" || len(req.Text) > maxMessageText {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "text must be 1 to 4000 characters")
		return
	}

	m, err := h.repo.Edit(r.Context(), id, userID, req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toMessageResponse(m))
}

// DeleteMessage soft-deletes one of the caller's messages
// @Summary Delete a chat message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/messages/{id} [delete]
func (h *MessagesHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}
	id, ok := messageIDFromPath(w, r)
	if !ok {
		return
	}

	m, err := h.repo.SoftDelete(r.Context(), id, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toMessageResponse(m))
}

func (h *MessagesHandler) requireMember(w http.ResponseWriter, r *http.Request, conversationID, userID uuid.UUID) bool {
	ok, err := h.members.IsMember(r.Context(), conversationID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return false
	}
	if !ok {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "not a member of this conversation")
		return false
	}
	return true
}

func conversationIDParam(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "conversation_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "conversation_id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func messageIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "invalid message id")
		return uuid.Nil, false
	}
	return id, true
}

func toMessageResponse(m *models.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Text:           m.Text,
		Picture:        m.Picture,
		Location:       m.Location,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Edited:         m.Edited,
		Deleted:        m.Deleted,
		CreatedAt:      utils.FormatTimestamp(m.CreatedAt),
		UpdatedAt:      utils.FormatTimestamp(m.UpdatedAt),
	}
}
