package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/models"
)

const tripColumns = `id, owner_id, origin_city, destination_city, departure_date, arrival_date,
       departure_time, arrival_time, price_per_person, max_participants, seats_left,
       description, vehicle_type, cancelled, completed, created_at, updated_at`

// TripStore is the PostgreSQL ledger.Store. Mutations run in a transaction
// that locks the trip row first, so concurrent joins and refunds on one trip
// are applied one after another.
type TripStore struct {
	db *pgxpool.Pool
}

// NewTripStore creates a TripStore on db.
func NewTripStore(db *pgxpool.Pool) *TripStore {
	return &TripStore{db: db}
}

var _ ledger.Store = (*TripStore)(nil)

func (s *TripStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO trips (`+tripColumns+`)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			trip.ID, trip.OwnerID, trip.OriginCity, trip.DestinationCity, trip.DepartureDate, trip.ArrivalDate,
			trip.DepartureTime, trip.ArrivalTime, trip.PricePerPerson, trip.MaxParticipants, trip.SeatsLeft,
			trip.Description, trip.VehicleType, trip.Cancelled, trip.Completed, trip.CreatedAt, trip.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}
		if err := addUserTrip(ctx, tx, trip.OwnerID, trip.ID); err != nil {
			return err
		}
		return nil
	})
}

func (s *TripStore) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	return loadTrip(ctx, s.db, tripID, false)
}

func (s *TripStore) ListTrips(ctx context.Context, filter ledger.TripFilter) ([]models.Trip, error) {
	args := []any{}
	where := []string{"seats_left >= $1"}
	args = append(args, filter.MinSeatsLeft)
	if filter.OriginCity != "" {
		args = append(args, filter.OriginCity)
		where = append(where, fmt.Sprintf("origin_city = $%d", len(args)))
	}
	if filter.DestinationCity != "" {
		args = append(args, filter.DestinationCity)
		where = append(where, fmt.Sprintf("destination_city = $%d", len(args)))
	}
	if filter.DepartureDate != "" {
		args = append(args, filter.DepartureDate)
		where = append(where, fmt.Sprintf("departure_date = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM trips WHERE %s
         ORDER BY departure_date, departure_time
         LIMIT $%d OFFSET $%d`, tripColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	trips := make([]models.Trip, 0, filter.Limit)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		trips = append(trips, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	for i := range trips {
		participants, err := loadParticipants(ctx, s.db, trips[i].ID)
		if err != nil {
			return nil, err
		}
		trips[i].Participants = participants
	}
	return trips, nil
}

func (s *TripStore) Join(ctx context.Context, tripID, userID uuid.UUID, tickets int) (*models.Trip, error) {
	var out *models.Trip
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var seatsLeft int
		err := tx.QueryRow(ctx, `SELECT seats_left FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&seatsLeft)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.TripNotFound(tripID)
		}
		if err != nil {
			return fmt.Errorf("lock trip: %w", err)
		}
		if seatsLeft < tickets {
			return &ledger.CapacityExceededError{TripID: tripID, Requested: tickets, Available: seatsLeft}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO trip_participants (trip_id, user_id, tickets)
             VALUES ($1, $2, $3)
             ON CONFLICT (trip_id, user_id) DO UPDATE SET tickets = trip_participants.tickets + EXCLUDED.tickets`,
			tripID, userID, tickets,
		); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE trips SET seats_left = seats_left - $2, updated_at = NOW() WHERE id = $1`,
			tripID, tickets,
		); err != nil {
			return fmt.Errorf("update seats: %w", err)
		}
		if err := addUserTrip(ctx, tx, userID, tripID); err != nil {
			return err
		}

		out, err = loadTrip(ctx, tx, tripID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TripStore) RefundOne(ctx context.Context, tripID, userID uuid.UUID) (*models.Trip, bool, error) {
	var (
		out     *models.Trip
		removed bool
	)
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT TRUE FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.TripNotFound(tripID)
		}
		if err != nil {
			return fmt.Errorf("lock trip: %w", err)
		}

		var tickets int
		err = tx.QueryRow(ctx,
			`SELECT tickets FROM trip_participants WHERE trip_id = $1 AND user_id = $2`,
			tripID, userID,
		).Scan(&tickets)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ParticipantNotFound(tripID, userID)
		}
		if err != nil {
			return fmt.Errorf("load participant: %w", err)
		}

		if tickets <= 1 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM trip_participants WHERE trip_id = $1 AND user_id = $2`, tripID, userID,
			); err != nil {
				return fmt.Errorf("remove participant: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM user_trips WHERE user_id = $1 AND trip_id = $2`, userID, tripID,
			); err != nil {
				return fmt.Errorf("retract user trip: %w", err)
			}
			removed = true
		} else {
			if _, err := tx.Exec(ctx,
				`UPDATE trip_participants SET tickets = tickets - 1 WHERE trip_id = $1 AND user_id = $2`,
				tripID, userID,
			); err != nil {
				return fmt.Errorf("decrement tickets: %w", err)
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE trips SET seats_left = seats_left + 1, updated_at = NOW() WHERE id = $1`, tripID,
		); err != nil {
			return fmt.Errorf("update seats: %w", err)
		}

		out, err = loadTrip(ctx, tx, tripID, false)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, removed, nil
}

func (s *TripStore) ToggleCancelled(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE trips SET cancelled = NOT cancelled, updated_at = NOW()
          WHERE id = $1
      RETURNING `+tripColumns, tripID)
	trip, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.TripNotFound(tripID)
	}
	if err != nil {
		return nil, err
	}
	trip.Participants, err = loadParticipants(ctx, s.db, tripID)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *TripStore) Delete(ctx context.Context, tripID, requesterID uuid.UUID) (*models.Trip, error) {
	var out *models.Trip
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		trip, err := loadTrip(ctx, tx, tripID, true)
		if err != nil {
			return err
		}
		if trip.OwnerID != requesterID {
			return &ledger.AuthorizationError{Action: "delete", UserID: requesterID, TripID: tripID}
		}

		// user_trips holds the owner's and every participant's reference
		if _, err := tx.Exec(ctx, `DELETE FROM user_trips WHERE trip_id = $1`, tripID); err != nil {
			return fmt.Errorf("retract user trips: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trip_participants WHERE trip_id = $1`, tripID); err != nil {
			return fmt.Errorf("delete participants: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID); err != nil {
			return fmt.Errorf("delete trip: %w", err)
		}
		out = trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TripStore) UserTrips(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT trip_id FROM user_trips WHERE user_id = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user trips: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user trip: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func addUserTrip(ctx context.Context, tx pgx.Tx, userID, tripID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_trips (user_id, trip_id) VALUES ($1, $2) ON CONFLICT (user_id, trip_id) DO NOTHING`,
		userID, tripID,
	)
	if err != nil {
		return fmt.Errorf("add user trip: %w", err)
	}
	return nil
}

func loadTrip(ctx context.Context, q querier, tripID uuid.UUID, forUpdate bool) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	trip, err := scanTrip(q.QueryRow(ctx, query, tripID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.TripNotFound(tripID)
	}
	if err != nil {
		return nil, err
	}
	trip.Participants, err = loadParticipants(ctx, q, tripID)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func loadParticipants(ctx context.Context, q querier, tripID uuid.UUID) ([]models.Participant, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id, tickets FROM trip_participants WHERE trip_id = $1 ORDER BY seq`, tripID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.Tickets); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.OriginCity, &t.DestinationCity, &t.DepartureDate, &t.ArrivalDate,
		&t.DepartureTime, &t.ArrivalTime, &t.PricePerPerson, &t.MaxParticipants, &t.SeatsLeft,
		&t.Description, &t.VehicleType, &t.Cancelled, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan trip: %w", err)
	}
	return &t, nil
}

func (s *TripStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
