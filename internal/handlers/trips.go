package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/utils"
)

// TripsHandler manages trip-related endpoints
type TripsHandler struct {
	ledger *ledger.Service
	logger *slog.Logger
}

// NewTripsHandler creates a new TripsHandler
func NewTripsHandler(l *ledger.Service, logger *slog.Logger) *TripsHandler {
	return &TripsHandler{ledger: l, logger: logger}
}

// CreateTrip handles POST /api/trips
// @Summary Create a new trip
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTripRequest true "Trip payload"
// @Success 201 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/trips [post]
func (h *TripsHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.CreateTripRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.ledger.CreateTrip(r.Context(), userID, ledger.TripInput{
		OriginCity:      req.OriginCity,
		DestinationCity: req.DestinationCity,
		DepartureDate:   req.DepartureDate,
		ArrivalDate:     req.ArrivalDate,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		PricePerPerson:  req.PricePerPerson,
		MaxParticipants: req.MaxParticipants,
		Description:     req.Description,
		VehicleType:     req.VehicleType,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, toTripResponse(trip))
}

// ListTrips handles GET /api/trips with filters and pagination
// @Summary List trips
// @Description Search trips by route and date; seats_left is a minimum.
// @Tags trips
// @Produce json
// @Param origin_city query string false "origin city"
// @Param destination_city query string false "destination city"
// @Param departure_date query string false "YYYY-MM-DD"
// @Param seats_left query int false "minimum free seats"
// @Param limit query int false "items per page (default 20, max 100)"
// @Param offset query int false "offset"
// @Success 200 {object} dto.TripListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/trips [get]
func (h *TripsHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.TripFilter{
		OriginCity:      strings.TrimSpace(q.Get("origin_city")),
		DestinationCity: strings.TrimSpace(q.Get("destination_city")),
		DepartureDate:   strings.TrimSpace(q.Get("departure_date")),
	}
	var err error
	if filter.MinSeatsLeft, err = intParam(q.Get("seats_left"), 0); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "seats_left must be an integer")
		return
	}
	if filter.Limit, err = intParam(q.Get("limit"), 20); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "offset must be an integer")
		return
	}

	trips, err := h.ledger.ListTrips(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	resp := dto.TripListResponse{
		Trips:      make([]dto.TripResponse, 0, len(trips)),
		Pagination: dto.Pagination{Limit: filter.Limit, Offset: filter.Offset},
	}
	for i := range trips {
		resp.Trips = append(resp.Trips, toTripResponse(&trips[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// TripDetail handles GET /api/trips/{id}
// @Summary Get trip detail
// @Tags trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id} [get]
func (h *TripsHandler) TripDetail(w http.ResponseWriter, r *http.Request) {
	tripID, ok := tripIDFromPath(w, r)
	if !ok {
		return
	}

	trip, err := h.ledger.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toTripResponse(trip))
}

// JoinTrip handles POST /api/trips/{id}/join
// @Summary Book tickets on a trip
// @Description Joining again adds to the caller's existing tickets.
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.JoinTripRequest true "Tickets"
// @Success 201 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Not enough seats"
// @Router /api/trips/{id}/join [post]
func (h *TripsHandler) JoinTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}
	tripID, ok := tripIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.JoinTripRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.ledger.JoinTrip(r.Context(), tripID, userID, req.Tickets)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, toTripResponse(trip))
}

// RefundTicket handles PUT /api/trips/{id}/refund
// @Summary Return one ticket
// @Description Returning the last ticket removes the caller from the trip.
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Success 200 {object} dto.TripResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id}/refund [put]
func (h *TripsHandler) RefundTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}
	tripID, ok := tripIDFromPath(w, r)
	if !ok {
		return
	}

	trip, err := h.ledger.RefundOne(r.Context(), tripID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toTripResponse(trip))
}

// CancelTrip handles PUT /api/trips/{id}/cancel
// @Summary Toggle a trip's cancelled flag
// @Description Owner only. Calling it again on a cancelled trip reactivates it.
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Success 200 {object} dto.TripResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id}/cancel [put]
func (h *TripsHandler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}
	tripID, ok := tripIDFromPath(w, r)
	if !ok {
		return
	}

	existing, err := h.ledger.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing.OwnerID != userID {
		writeError(w, h.logger, &ledger.AuthorizationError{Action: "cancel", UserID: userID, TripID: tripID})
		return
	}

	trip, err := h.ledger.CancelTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toTripResponse(trip))
}

// DeleteTrip handles DELETE /api/trips/{id}
// @Summary Delete a trip
// @Tags trips
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id} [delete]
func (h *TripsHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}
	tripID, ok := tripIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.ledger.DeleteTrip(r.Context(), tripID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyTrips handles GET /api/users/me/trips
// @Summary List the caller's trip ids
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserTripsResponse
// @Router /api/users/me/trips [get]
func (h *TripsHandler) MyTrips(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	ids, err := h.ledger.UserTrips(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.UserTripsResponse{TripIDs: uuidStrings(ids)})
}

func tripIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "invalid trip id")
		return uuid.Nil, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func toTripResponse(t *models.Trip) dto.TripResponse {
	participants := make([]dto.ParticipantResponse, 0, len(t.Participants))
	for _, p := range t.Participants {
		participants = append(participants, dto.ParticipantResponse{UserID: p.UserID.String(), Tickets: p.Tickets})
	}
	return dto.TripResponse{
		ID:              t.ID.String(),
		OwnerID:         t.OwnerID.String(),
		OriginCity:      t.OriginCity,
		DestinationCity: t.DestinationCity,
		DepartureDate:   t.DepartureDate,
		ArrivalDate:     t.ArrivalDate,
		DepartureTime:   t.DepartureTime,
		ArrivalTime:     t.ArrivalTime,
		PricePerPerson:  t.PricePerPerson,
		MaxParticipants: t.MaxParticipants,
		SeatsLeft:       t.SeatsLeft,
		Participants:    participants,
		Description:     t.Description,
		VehicleType:     t.VehicleType,
		Cancelled:       t.Cancelled,
		Completed:       t.Completed,
		CreatedAt:       utils.FormatTimestamp(t.CreatedAt),
		UpdatedAt:       utils.FormatTimestamp(t.UpdatedAt),
	}
}
