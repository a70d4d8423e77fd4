// Package ledger owns trip records and the seat accounting invariant:
//
//	seats_left == max_participants - sum(participant tickets), seats_left >= 0
//
// The Service validates requests and emits events; the Store applies every
// mutation atomically.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"RIDESHARE_BACK-END/internal/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// TripInput carries the owner supplied attributes of a new trip.
// Pointer fields distinguish "missing" from zero.
type TripInput struct {
	OriginCity      string
	DestinationCity string
	DepartureDate   string
	ArrivalDate     string
	DepartureTime   string
	ArrivalTime     string
	PricePerPerson  *float64
	MaxParticipants *int
	Description     string
	VehicleType     string
}

// Service is the trip ledger.
type Service struct {
	store  Store
	pub    Publisher
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a ledger over store. A nil publisher drops events.
func NewService(store Store, pub Publisher, logger *slog.Logger) *Service {
	if pub == nil {
		pub = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		pub:    pub,
		logger: logger,
		tracer: otel.Tracer("rideshare/ledger"),
		now:    time.Now,
	}
}

// CreateTrip validates in and stores a new trip owned by ownerID with every seat free.
func (s *Service) CreateTrip(ctx context.Context, ownerID uuid.UUID, in TripInput) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CreateTrip")
	defer span.End()

	if err := validateTripInput(&in); err != nil {
		return nil, s.fail(span, err)
	}

	now := s.now().UTC()
	trip := &models.Trip{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		OriginCity:      in.OriginCity,
		DestinationCity: in.DestinationCity,
		DepartureDate:   in.DepartureDate,
		ArrivalDate:     in.ArrivalDate,
		DepartureTime:   in.DepartureTime,
		ArrivalTime:     in.ArrivalTime,
		PricePerPerson:  *in.PricePerPerson,
		MaxParticipants: *in.MaxParticipants,
		SeatsLeft:       *in.MaxParticipants,
		Participants:    []models.Participant{},
		Description:     in.Description,
		VehicleType:     in.VehicleType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	span.SetAttributes(attribute.String("trip.id", trip.ID.String()))

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, s.fail(span, err)
	}

	s.publish(ctx, trip, EventTripCreated, ownerID, 0, false)
	return trip, nil
}

// GetTrip loads a single trip.
func (s *Service) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	return s.store.GetTrip(ctx, tripID)
}

// ListTrips returns trips matching filter.
func (s *Service) ListTrips(ctx context.Context, filter TripFilter) ([]models.Trip, error) {
	if filter.DepartureDate != "" {
		if _, err := time.Parse(dateLayout, filter.DepartureDate); err != nil {
			return nil, &ValidationError{Fields: map[string]string{"departure_date": "must be YYYY-MM-DD"}}
		}
	}
	if filter.MinSeatsLeft < 0 {
		filter.MinSeatsLeft = 0
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListTrips(ctx, filter)
}

// UserTrips lists the trip ids on the user's trip list.
func (s *Service) UserTrips(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.UserTrips(ctx, userID)
}

// JoinTrip books tickets for userID. A second join by the same user adds to
// the existing entry instead of creating another one.
func (s *Service) JoinTrip(ctx context.Context, tripID, userID uuid.UUID, tickets int) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.JoinTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.Int("tickets", tickets),
	))
	defer span.End()

	if tickets < 1 {
		return nil, s.fail(span, &ValidationError{Fields: map[string]string{"tickets": "must be at least 1"}})
	}

	trip, err := s.store.Join(ctx, tripID, userID, tickets)
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.logger.Info("trip joined", "trip_id", tripID, "user_id", userID, "tickets", tickets, "seats_left", trip.SeatsLeft)
	s.publish(ctx, trip, EventTripJoined, userID, tickets, false)
	return trip, nil
}

// RefundOne gives back exactly one of the user's tickets. The entry and the
// user's trip reference disappear when the last ticket is returned.
func (s *Service) RefundOne(ctx context.Context, tripID, userID uuid.UUID) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.RefundOne", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	trip, removed, err := s.store.RefundOne(ctx, tripID, userID)
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.logger.Info("ticket refunded", "trip_id", tripID, "user_id", userID, "left_trip", removed, "seats_left", trip.SeatsLeft)
	s.publish(ctx, trip, EventTripRefunded, userID, 1, removed)
	return trip, nil
}

// CancelTrip flips the cancelled flag. Calling it on a cancelled trip makes
// it active again.
func (s *Service) CancelTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CancelTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	trip, err := s.store.ToggleCancelled(ctx, tripID)
	if err != nil {
		return nil, s.fail(span, err)
	}

	evType := EventTripCancelled
	if !trip.Cancelled {
		evType = EventTripReactivated
	}
	s.logger.Info("trip cancel toggled", "trip_id", tripID, "cancelled", trip.Cancelled)
	s.publish(ctx, trip, evType, trip.OwnerID, 0, false)
	return trip, nil
}

// DeleteTrip removes a trip on behalf of its owner.
func (s *Service) DeleteTrip(ctx context.Context, tripID, requesterID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.DeleteTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	trip, err := s.store.Delete(ctx, tripID, requesterID)
	if err != nil {
		return s.fail(span, err)
	}

	s.logger.Info("trip deleted", "trip_id", tripID, "participants", len(trip.Participants))
	s.publish(ctx, trip, EventTripDeleted, requesterID, 0, false)
	return nil
}

// RemoveUser detaches userID from the ledger before the account goes away.
// Trips the user owns are deleted and every ticket the user holds elsewhere
// is refunded, so other users' trip lists and seat counts stay consistent.
func (s *Service) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.RemoveUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	tripIDs, err := s.store.UserTrips(ctx, userID)
	if err != nil {
		return s.fail(span, err)
	}

	for _, tripID := range tripIDs {
		trip, err := s.store.GetTrip(ctx, tripID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return s.fail(span, err)
		}

		if trip.OwnerID == userID {
			if err := s.DeleteTrip(ctx, tripID, userID); err != nil {
				return s.fail(span, err)
			}
			continue
		}

		p, ok := trip.Participant(userID)
		if !ok {
			continue
		}
		for i := 0; i < p.Tickets; i++ {
			if _, err := s.RefundOne(ctx, tripID, userID); err != nil {
				return s.fail(span, err)
			}
		}
	}

	s.logger.Info("user removed from ledger", "user_id", userID, "trips", len(tripIDs))
	return nil
}

func (s *Service) publish(ctx context.Context, trip *models.Trip, typ EventType, userID uuid.UUID, tickets int, left bool) {
	ev := TripEvent{
		ID:            uuid.New(),
		Type:          typ,
		TripID:        trip.ID,
		OwnerID:       trip.OwnerID,
		UserID:        userID,
		Tickets:       tickets,
		SeatsLeft:     trip.SeatsLeft,
		Left:          left,
		Participants:  trip.ParticipantIDs(),
		Route:         trip.OriginCity + " → " + trip.DestinationCity,
		DepartureDate: trip.DepartureDate,
		DepartureTime: trip.DepartureTime,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish trip event failed", "type", typ, "trip_id", trip.ID, "error", err)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func validateTripInput(in *TripInput) error {
	fields := map[string]string{}

	in.OriginCity = strings.TrimSpace(in.OriginCity)
	in.DestinationCity = strings.TrimSpace(in.DestinationCity)
	in.DepartureDate = strings.TrimSpace(in.DepartureDate)
	in.ArrivalDate = strings.TrimSpace(in.ArrivalDate)
	in.DepartureTime = strings.TrimSpace(in.DepartureTime)
	in.ArrivalTime = strings.TrimSpace(in.ArrivalTime)
	in.VehicleType = strings.TrimSpace(in.VehicleType)

	if in.OriginCity == "" {
		fields["origin_city"] = "is required"
	}
	if in.DestinationCity == "" {
		fields["destination_city"] = "is required"
	}

	depDate, depDateOK := parseField(fields, "departure_date", in.DepartureDate, dateLayout, "YYYY-MM-DD")
	arrDate, arrDateOK := parseField(fields, "arrival_date", in.ArrivalDate, dateLayout, "YYYY-MM-DD")
	depTime, depTimeOK := parseField(fields, "departure_time", in.DepartureTime, timeLayout, "HH:MM")
	arrTime, arrTimeOK := parseField(fields, "arrival_time", in.ArrivalTime, timeLayout, "HH:MM")
	if depDateOK && arrDateOK && depTimeOK && arrTimeOK {
		departure := depDate.Add(time.Duration(depTime.Hour())*time.Hour + time.Duration(depTime.Minute())*time.Minute)
		arrival := arrDate.Add(time.Duration(arrTime.Hour())*time.Hour + time.Duration(arrTime.Minute())*time.Minute)
		if arrival.Before(departure) {
			fields["arrival_date"] = "cannot be before departure"
		}
	}

	switch {
	case in.PricePerPerson == nil:
		fields["price_per_person"] = "is required"
	case *in.PricePerPerson < 0:
		fields["price_per_person"] = "cannot be negative"
	}
	switch {
	case in.MaxParticipants == nil:
		fields["max_participants"] = "is required"
	case *in.MaxParticipants < 1:
		fields["max_participants"] = "must be at least 1"
	}

	switch in.VehicleType {
	case "", models.VehicleCar, models.VehicleMiniBus:
	default:
		fields["vehicle_type"] = "must be Car or Mini-Bus"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func parseField(fields map[string]string, name, value, layout, human string) (time.Time, bool) {
	if value == "" {
		fields[name] = "is required"
		return time.Time{}, false
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		fields[name] = "must be " + human
		return time.Time{}, false
	}
	return t, true
}
