package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle types offered by trip owners
const (
	VehicleCar     = "Car"
	VehicleMiniBus = "Mini-Bus"
)

// Participant is a user's ticket holding on a trip
type Participant struct {
	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	Tickets int       `json:"tickets" db:"tickets"`
}

// Trip represents a scheduled shared ride offered by its owner
type Trip struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	OwnerID         uuid.UUID     `json:"owner_id" db:"owner_id"`
	OriginCity      string        `json:"origin_city" db:"origin_city"`
	DestinationCity string        `json:"destination_city" db:"destination_city"`
	DepartureDate   string        `json:"departure_date" db:"departure_date"` // YYYY-MM-DD
	ArrivalDate     string        `json:"arrival_date" db:"arrival_date"`     // YYYY-MM-DD
	DepartureTime   string        `json:"departure_time" db:"departure_time"` // HH:MM
	ArrivalTime     string        `json:"arrival_time" db:"arrival_time"`     // HH:MM
	PricePerPerson  float64       `json:"price_per_person" db:"price_per_person"`
	MaxParticipants int           `json:"max_participants" db:"max_participants"`
	SeatsLeft       int           `json:"seats_left" db:"seats_left"`
	Participants    []Participant `json:"participants"`
	Description     string        `json:"description" db:"description"`
	VehicleType     string        `json:"vehicle_type" db:"vehicle_type"`
	Cancelled       bool          `json:"cancelled" db:"cancelled"`
	Completed       bool          `json:"completed" db:"completed"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// TicketsHeld sums the tickets over all participant entries
func (t *Trip) TicketsHeld() int {
	total := 0
	for _, p := range t.Participants {
		total += p.Tickets
	}
	return total
}

// Participant returns the entry held by userID, if any
func (t *Trip) Participant(userID uuid.UUID) (Participant, bool) {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// ParticipantIDs lists the user ids of all participant entries in join order
func (t *Trip) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Clone returns a deep copy so callers never share the participant slice
func (t *Trip) Clone() *Trip {
	c := *t
	c.Participants = append([]Participant(nil), t.Participants...)
	return &c
}
