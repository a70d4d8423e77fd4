package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names a trip ledger event. Values double as broker routing keys.
type EventType string

const (
	EventTripCreated     EventType = "trip.created"
	EventTripJoined      EventType = "trip.joined"
	EventTripRefunded    EventType = "trip.refunded"
	EventTripCancelled   EventType = "trip.cancelled"
	EventTripReactivated EventType = "trip.reactivated"
	EventTripDeleted     EventType = "trip.deleted"
)

// TripEvent describes a committed ledger mutation. ID is unique per
// committed mutation and stays the same across broker redeliveries.
type TripEvent struct {
	ID            uuid.UUID   `json:"id"`
	Type          EventType   `json:"type"`
	TripID        uuid.UUID   `json:"trip_id"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	UserID        uuid.UUID   `json:"user_id"`
	Tickets       int         `json:"tickets,omitempty"`
	SeatsLeft     int         `json:"seats_left"`
	Left          bool        `json:"left,omitempty"` // refund removed the participant entry
	Participants  []uuid.UUID `json:"participants,omitempty"`
	Route         string      `json:"route"`
	DepartureDate string      `json:"departure_date"` // YYYY-MM-DD
	DepartureTime string      `json:"departure_time"` // HH:MM
	OccurredAt    time.Time   `json:"occurred_at"`
}

// Publisher receives ledger events after the store commits them.
type Publisher interface {
	Publish(ctx context.Context, ev TripEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TripEvent) error { return nil }

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev TripEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
