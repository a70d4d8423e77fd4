package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/payment"
	"RIDESHARE_BACK-END/internal/utils"
)

// TripGetter loads a trip for pricing.
type TripGetter interface {
	GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
}

// PaymentsHandler charges riders for trip tickets. Booking the seats is a
// separate call to the trips API.
type PaymentsHandler struct {
	trips    TripGetter
	charger  payment.Charger
	currency string
	logger   *slog.Logger
}

// NewPaymentsHandler creates the handler. A nil charger makes every charge
// request answer 503.
func NewPaymentsHandler(trips TripGetter, charger payment.Charger, currency string, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{trips: trips, charger: charger, currency: currency, logger: logger}
}

// CreateCharge pays for tickets on a trip
// @Summary Pay for trip tickets
// @Description Charges price_per_person x tickets to a tokenized card
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateChargeRequest true "Charge request"
// @Success 201 {object} dto.ChargeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/payments/charges [post]
func (h *PaymentsHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}
	if h.charger == nil {
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "Payments unavailable", "payment provider is not configured")
		return
	}

	var req dto.CreateChargeRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	tripID, err := uuid.Parse(strings.TrimSpace(req.TripID))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "invalid trip id")
		return
	}
	if req.Tickets < 1 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "tickets must be at least 1")
		return
	}
	if strings.TrimSpace(req.CardToken) == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "card_token is required")
		return
	}

	trip, err := h.trips.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if trip.Cancelled {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "trip is cancelled")
		return
	}

	ch, err := h.charger.Charge(r.Context(), payment.ChargeRequest{
		TripID:    trip.ID,
		UserID:    userID,
		Tickets:   req.Tickets,
		Amount:    payment.AmountFor(trip.PricePerPerson, req.Tickets),
		Currency:  h.currency,
		CardToken: req.CardToken,
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidCharge) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", err.Error())
			return
		}
		h.logger.Error("charge failed", "trip_id", trip.ID, "user_id", userID, "error", err)
		utils.WriteErrorResponse(w, http.StatusPaymentRequired, "Payment failed", "the card could not be charged")
		return
	}

	h.logger.Info("charge created", "charge_id", ch.ID, "trip_id", trip.ID, "status", ch.Status)
	utils.WriteJSONResponse(w, http.StatusCreated, dto.ChargeResponse{
		ChargeID:       ch.ID,
		Status:         ch.Status,
		Amount:         ch.Amount,
		Currency:       ch.Currency,
		FailureCode:    ch.FailureCode,
		FailureMessage: ch.FailureMessage,
	})
}
