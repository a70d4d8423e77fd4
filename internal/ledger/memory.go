package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/models"
)

// MemoryStore is a process-local Store. A single mutex serializes every
// operation, which makes each mutation atomic.
type MemoryStore struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]*models.Trip
	userTrips map[uuid.UUID][]uuid.UUID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:     make(map[uuid.UUID]*models.Trip),
		userTrips: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *MemoryStore) CreateTrip(_ context.Context, trip *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trips[trip.ID] = trip.Clone()
	m.addUserTripLocked(trip.OwnerID, trip.ID)
	return nil
}

func (m *MemoryStore) GetTrip(_ context.Context, tripID uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, TripNotFound(tripID)
	}
	return trip.Clone(), nil
}

func (m *MemoryStore) ListTrips(_ context.Context, filter TripFilter) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Trip, 0)
	for _, t := range m.trips {
		if filter.OriginCity != "" && t.OriginCity != filter.OriginCity {
			continue
		}
		if filter.DestinationCity != "" && t.DestinationCity != filter.DestinationCity {
			continue
		}
		if filter.DepartureDate != "" && t.DepartureDate != filter.DepartureDate {
			continue
		}
		if t.SeatsLeft < filter.MinSeatsLeft {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureDate != out[j].DepartureDate {
			return out[i].DepartureDate < out[j].DepartureDate
		}
		return out[i].DepartureTime < out[j].DepartureTime
	})

	if filter.Offset >= len(out) {
		return []models.Trip{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Join(_ context.Context, tripID, userID uuid.UUID, tickets int) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, TripNotFound(tripID)
	}
	if trip.SeatsLeft < tickets {
		return nil, &CapacityExceededError{TripID: tripID, Requested: tickets, Available: trip.SeatsLeft}
	}

	found := false
	for i := range trip.Participants {
		if trip.Participants[i].UserID == userID {
			trip.Participants[i].Tickets += tickets
			found = true
			break
		}
	}
	if !found {
		trip.Participants = append(trip.Participants, models.Participant{UserID: userID, Tickets: tickets})
	}
	trip.SeatsLeft -= tickets
	trip.UpdatedAt = time.Now().UTC()
	m.addUserTripLocked(userID, tripID)

	return trip.Clone(), nil
}

func (m *MemoryStore) RefundOne(_ context.Context, tripID, userID uuid.UUID) (*models.Trip, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, false, TripNotFound(tripID)
	}

	idx := -1
	for i := range trip.Participants {
		if trip.Participants[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false, ParticipantNotFound(tripID, userID)
	}

	removed := false
	trip.Participants[idx].Tickets--
	if trip.Participants[idx].Tickets == 0 {
		trip.Participants = append(trip.Participants[:idx], trip.Participants[idx+1:]...)
		m.removeUserTripLocked(userID, tripID)
		removed = true
	}
	trip.SeatsLeft++
	trip.UpdatedAt = time.Now().UTC()

	return trip.Clone(), removed, nil
}

func (m *MemoryStore) ToggleCancelled(_ context.Context, tripID uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, TripNotFound(tripID)
	}
	trip.Cancelled = !trip.Cancelled
	trip.UpdatedAt = time.Now().UTC()
	return trip.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, tripID, requesterID uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, TripNotFound(tripID)
	}
	if trip.OwnerID != requesterID {
		return nil, &AuthorizationError{Action: "delete", UserID: requesterID, TripID: tripID}
	}

	for _, p := range trip.Participants {
		m.removeUserTripLocked(p.UserID, tripID)
	}
	m.removeUserTripLocked(trip.OwnerID, tripID)
	delete(m.trips, tripID)

	return trip, nil
}

func (m *MemoryStore) UserTrips(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]uuid.UUID{}, m.userTrips[userID]...), nil
}

func (m *MemoryStore) addUserTripLocked(userID, tripID uuid.UUID) {
	for _, id := range m.userTrips[userID] {
		if id == tripID {
			return
		}
	}
	m.userTrips[userID] = append(m.userTrips[userID], tripID)
}

func (m *MemoryStore) removeUserTripLocked(userID, tripID uuid.UUID) {
	list := m.userTrips[userID]
	for i, id := range list {
		if id == tripID {
			m.userTrips[userID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}
