package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/utils"
)

const maxReviewText = 1000

// ReviewRepository stores the reviews users write about each other.
type ReviewRepository interface {
	Create(ctx context.Context, rv *models.Review) error
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Review, error)
	Update(ctx context.Context, subjectID, reviewID, authorID uuid.UUID, text string, rating int) (*models.Review, error)
	Delete(ctx context.Context, subjectID, reviewID, authorID uuid.UUID) error
}

// ReviewsHandler serves reviews on user profiles. Only a review's author
// may change or remove it.
type ReviewsHandler struct {
	repo   ReviewRepository
	users  UserLookup
	logger *slog.Logger
	now    func() time.Time
}

func NewReviewsHandler(repo ReviewRepository, users UserLookup, logger *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{repo: repo, users: users, logger: logger, now: time.Now}
}

// ListReviews godoc
// @Summary      List the reviews of a user
// @Tags         reviews
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  dto.ReviewListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id}/reviews [get]
func (h *ReviewsHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathUUID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	if _, err := h.users.GetByID(r.Context(), subjectID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reviews, err := h.repo.ListBySubject(r.Context(), subjectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := dto.ReviewListResponse{Reviews: make([]dto.ReviewResponse, 0, len(reviews)), Count: len(reviews)}
	sum := 0
	for i := range reviews {
		out.Reviews = append(out.Reviews, toReviewResponse(&reviews[i]))
		sum += reviews[i].Rating
	}
	if len(reviews) > 0 {
		out.AverageRating = math.Round(float64(sum)/float64(len(reviews))*100) / 100
	}
	utils.WriteJSONResponse(w, http.StatusOK, out)
}

// CreateReview godoc
// @Summary      Review a user
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Reviewed user ID"
// @Param        payload  body      dto.ReviewRequest  true  "Review"
// @Success      201      {object}  dto.ReviewResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      409      {object}  dto.ErrorResponse
// @Router       /api/users/{id}/reviews [post]
func (h *ReviewsHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	authorID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "missing user in context")
		return
	}
	subjectID, ok := pathUUID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	if subjectID == authorID {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "cannot review yourself")
		return
	}
	if _, err := h.users.GetByID(r.Context(), subjectID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	rv := &models.Review{
		ID:        uuid.New(),
		SubjectID: subjectID,
		AuthorID:  authorID,
		Text:      req.Text,
		Rating:    req.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Create(r.Context(), rv); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, toReviewResponse(rv))
}

// UpdateReview godoc
// @Summary      Edit my review of a user
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string             true  "Reviewed user ID"
// @Param        reviewId  path      string             true  "Review ID"
// @Param        payload   body      dto.ReviewRequest  true  "Review"
// @Success      200       {object}  dto.ReviewResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      403       {object}  dto.ErrorResponse
// @Failure      404       {object}  dto.ErrorResponse
// @Router       /api/users/{id}/reviews/{reviewId} [put]
func (h *ReviewsHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	authorID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "missing user in context")
		return
	}
	subjectID, ok := pathUUID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	reviewID, ok := pathUUID(w, r, "reviewId", "invalid review id")
	if !ok {
		return
	}
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}

	rv, err := h.repo.Update(r.Context(), subjectID, reviewID, authorID, req.Text, req.Rating)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toReviewResponse(rv))
}

// DeleteReview godoc
// @Summary      Delete my review of a user
// @Tags         reviews
// @Security     BearerAuth
// @Param        id        path  string  true  "Reviewed user ID"
// @Param        reviewId  path  string  true  "Review ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id}/reviews/{reviewId} [delete]
func (h *ReviewsHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	authorID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "missing user in context")
		return
	}
	subjectID, ok := pathUUID(w, r, "id", "invalid user id")
	if !ok {
		return
	}
	reviewID, ok := pathUUID(w, r, "reviewId", "invalid review id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), subjectID, reviewID, authorID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeReview(w http.ResponseWriter, r *http.Request) (dto.ReviewRequest, bool) {
	var req dto.ReviewRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return req, false
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" || len(req.Text) > maxReviewText {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "text must be 1 to 1000 characters")
		return req, false
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "rating must be between 1 and 5")
		return req, false
	}
	return req, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", msg)
		return uuid.Nil, false
	}
	return id, true
}

func toReviewResponse(rv *models.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:        rv.ID.String(),
		SubjectID: rv.SubjectID.String(),
		AuthorID:  rv.AuthorID.String(),
		Text:      rv.Text,
		Rating:    rv.Rating,
		CreatedAt: utils.FormatTimestamp(rv.CreatedAt),
		UpdatedAt: utils.FormatTimestamp(rv.UpdatedAt),
	}
}
