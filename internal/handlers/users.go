package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/utils"
)

// AccountLedger is the part of the trip ledger an account's lifecycle touches.
type AccountLedger interface {
	TripLister
	RemoveUser(ctx context.Context, userID uuid.UUID) error
}

// UsersHandler serves profiles. Only the owner sees their email.
type UsersHandler struct {
	users  UserRepository
	trips  AccountLedger
	logger *slog.Logger
}

func NewUsersHandler(users UserRepository, trips AccountLedger, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, trips: trips, logger: logger}
}

// GetUser godoc
// @Summary      Get a user's public profile
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  dto.UserResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	trips, err := h.trips.UserTrips(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toUserResponse(user, trips, false))
}

// UpdateMe godoc
// @Summary      Update my profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      dto.UpdateUserRequest  true  "Fields to change"
// @Success      200      {object}  dto.UserResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      401      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /api/users/me [put]
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "missing user in context")
		return
	}

	var req dto.UpdateUserRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	var upd models.UserUpdate
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" || len(name) > 50 {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "username must be 1 to 50 characters")
			return
		}
		upd.Username = &name
	}
	upd.ProfilePic = req.ProfilePic
	if req.DateOfBirth != nil {
		dob, err := utils.ParseDate(*req.DateOfBirth)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "date_of_birth must be YYYY-MM-DD")
			return
		}
		upd.DateOfBirth = &dob
	}
	if upd.Username == nil && upd.ProfilePic == nil && upd.DateOfBirth == nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "no fields to update")
		return
	}

	user, err := h.users.Update(r.Context(), userID, upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	trips, err := h.trips.UserTrips(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toUserResponse(user, trips, true))
}

// DeleteMe godoc
// @Summary      Delete my account
// @Description  Deletes the trips the account owns, refunds its tickets on other trips, then removes the account
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/me [delete]
func (h *UsersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "missing user in context")
		return
	}

	if _, err := h.users.GetByID(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.trips.RemoveUser(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
