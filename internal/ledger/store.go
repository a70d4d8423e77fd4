package ledger

import (
	"context"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/models"
)

// TripFilter narrows ListTrips. Zero values mean "any".
type TripFilter struct {
	OriginCity      string
	DestinationCity string
	DepartureDate   string // YYYY-MM-DD
	MinSeatsLeft    int
	Limit           int
	Offset          int
}

// Store persists trips and users' trip lists.
//
// Every mutating method must apply its change as one atomic conditional
// update against the stored trip: implementations never read seats_left in
// one step and write it in another without holding the row (or document)
// for the whole operation.
type Store interface {
	// CreateTrip inserts the trip and appends it to the owner's trip list.
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	ListTrips(ctx context.Context, filter TripFilter) ([]models.Trip, error)

	// Join appends or increments the user's entry by tickets and decrements
	// seats_left, failing with *CapacityExceededError when not enough seats remain.
	Join(ctx context.Context, tripID, userID uuid.UUID, tickets int) (*models.Trip, error)

	// RefundOne returns one ticket. removed is true when the entry reached
	// zero and was deleted together with the user's trip reference.
	RefundOne(ctx context.Context, tripID, userID uuid.UUID) (trip *models.Trip, removed bool, err error)

	// ToggleCancelled flips the cancelled flag and returns the updated trip.
	ToggleCancelled(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)

	// Delete removes the trip when requesterID owns it, retracting the trip
	// from every participant's and the owner's list. It returns the trip as
	// it was before removal.
	Delete(ctx context.Context, tripID, requesterID uuid.UUID) (*models.Trip, error)

	// UserTrips lists the trip ids referenced by the user's trip list.
	UserTrips(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
