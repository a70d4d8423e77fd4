package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
	"RIDESHARE_BACK-END/internal/utils"
)

// ConversationMembership answers whether a user may read or post in a conversation.
type ConversationMembership interface {
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// ConversationRepository stores conversations and who belongs to them.
type ConversationRepository interface {
	ConversationMembership
	Create(ctx context.Context, c *models.Conversation) error
	FindDirect(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.Conversation, error)
	Leave(ctx context.Context, conversationID, userID uuid.UUID) error
	Rejoin(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)
}

// ConversationsHandler manages direct conversations between two users.
// Every route except create is restricted to the conversation's members.
type ConversationsHandler struct {
	repo   ConversationRepository
	users  UserLookup
	logger *slog.Logger
	now    func() time.Time
}

func NewConversationsHandler(repo ConversationRepository, users UserLookup, logger *slog.Logger) *ConversationsHandler {
	return &ConversationsHandler{repo: repo, users: users, logger: logger, now: time.Now}
}

// CreateConversation opens a conversation with another user
// @Summary Open a conversation
// @Description Returns the existing conversation, made visible again, when the two users already have one.
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateConversationRequest true "Receiver"
// @Success 201 {object} dto.ConversationResponse
// @Success 200 {object} dto.ConversationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations [post]
func (h *ConversationsHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var req dto.CreateConversationRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	receiver, err := uuid.Parse(strings.TrimSpace(req.ReceiverID))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "receiver_id must be a valid UUID")
		return
	}
	if receiver == userID {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "cannot open a conversation with yourself")
		return
	}
	if _, err := h.users.GetByID(r.Context(), receiver); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.repo.FindDirect(r.Context(), userID, receiver)
	switch {
	case err == nil:
		c, err := h.repo.Rejoin(r.Context(), existing.ID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		utils.WriteJSONResponse(w, http.StatusOK, toConversationResponse(c))
		return
	case !errors.Is(err, repository.ErrNotFound):
		writeError(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	c := &models.Conversation{
		ID:        uuid.New(),
		Members:   []uuid.UUID{userID, receiver},
		Active:    []uuid.UUID{userID, receiver},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("conversation created", "conversation_id", c.ID, "user_id", userID)
	utils.WriteJSONResponse(w, http.StatusCreated, toConversationResponse(c))
}

// ListConversations lists every conversation the caller belongs to
// @Summary List my conversations
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ConversationListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/conversations [get]
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListActiveConversations lists the caller's conversations they have not left
// @Summary List my visible conversations
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ConversationListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/conversations/filtered [get]
func (h *ConversationsHandler) ListActiveConversations(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ConversationsHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	convs, err := h.repo.ListForUser(r.Context(), userID, activeOnly)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		out = append(out, toConversationResponse(&convs[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.ConversationListResponse{Conversations: out})
}

// GetConversation returns one conversation
// @Summary Get a conversation
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} dto.ConversationResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations/{id} [get]
func (h *ConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.memberConversation(w, r)
	if !ok {
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toConversationResponse(c))
}

// RetrieveConversation makes a left conversation visible to its members again
// @Summary Restore a conversation
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} dto.ConversationResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations/{id}/retrieve [put]
func (h *ConversationsHandler) RetrieveConversation(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.memberConversation(w, r)
	if !ok {
		return
	}
	c, err := h.repo.Rejoin(r.Context(), c.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toConversationResponse(c))
}

// LeaveConversation hides a conversation for the caller
// @Summary Leave a conversation
// @Tags conversations
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations/{id} [delete]
func (h *ConversationsHandler) LeaveConversation(w http.ResponseWriter, r *http.Request) {
	c, userID, ok := h.memberConversation(w, r)
	if !ok {
		return
	}
	if err := h.repo.Leave(r.Context(), c.ID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memberConversation loads the conversation named in the path and checks
// the caller belongs to it, writing the error response when not.
func (h *ConversationsHandler) memberConversation(w http.ResponseWriter, r *http.Request) (*models.Conversation, uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "invalid conversation id")
		return nil, uuid.Nil, false
	}

	c, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, uuid.Nil, false
	}
	if !c.HasMember(userID) {
		writeError(w, h.logger, repository.ErrForbidden)
		return nil, uuid.Nil, false
	}
	return c, userID, true
}

func toConversationResponse(c *models.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:            c.ID.String(),
		Members:       uuidStrings(c.Members),
		ActiveMembers: uuidStrings(c.Active),
		CreatedAt:     utils.FormatTimestamp(c.CreatedAt),
		UpdatedAt:     utils.FormatTimestamp(c.UpdatedAt),
	}
}
