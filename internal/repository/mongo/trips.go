// Package mongo implements ledger.Store on MongoDB. Each trip is one
// document holding its participants, so every seat mutation is a single
// conditional findAndModify on that document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/models"
)

const (
	tripsCollection     = "trips"
	userTripsCollection = "user_trips"

	// conditional updates can lose a race between their two branches;
	// retry a few times before giving up.
	maxAttempts = 3
)

var errConflict = errors.New("concurrent update, retry")

type participantDoc struct {
	UserID  string `bson:"user_id"`
	Tickets int    `bson:"tickets"`
}

type tripDoc struct {
	ID              string           `bson:"_id"`
	OwnerID         string           `bson:"owner_id"`
	OriginCity      string           `bson:"origin_city"`
	DestinationCity string           `bson:"destination_city"`
	DepartureDate   string           `bson:"departure_date"`
	ArrivalDate     string           `bson:"arrival_date"`
	DepartureTime   string           `bson:"departure_time"`
	ArrivalTime     string           `bson:"arrival_time"`
	PricePerPerson  float64          `bson:"price_per_person"`
	MaxParticipants int              `bson:"max_participants"`
	SeatsLeft       int              `bson:"seats_left"`
	Participants    []participantDoc `bson:"participants"`
	Description     string           `bson:"description"`
	VehicleType     string           `bson:"vehicle_type"`
	Cancelled       bool             `bson:"cancelled"`
	Completed       bool             `bson:"completed"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

type userTripsDoc struct {
	UserID string   `bson:"_id"`
	Trips  []string `bson:"trips"`
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// TripStore is the MongoDB ledger.Store.
type TripStore struct {
	client    *mongo.Client
	trips     *mongo.Collection
	userTrips *mongo.Collection
	now       func() time.Time
}

var _ ledger.Store = (*TripStore)(nil)

// NewTripStore uses the trips and user_trips collections of database db.
func NewTripStore(client *mongo.Client, db string) *TripStore {
	d := client.Database(db)
	return &TripStore{
		client:    client,
		trips:     d.Collection(tripsCollection),
		userTrips: d.Collection(userTripsCollection),
		now:       time.Now,
	}
}

// EnsureIndexes creates the search index used by ListTrips.
func (s *TripStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.trips.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "departure_date", Value: 1}, {Key: "origin_city", Value: 1}, {Key: "destination_city", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create trips index: %w", err)
	}
	return nil
}

func (s *TripStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *TripStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if _, err := s.trips.InsertOne(ctx, toDoc(trip)); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return s.addUserTrip(ctx, trip.OwnerID, trip.ID)
}

func (s *TripStore) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var doc tripDoc
	err := s.trips.FindOne(ctx, bson.M{"_id": tripID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.TripNotFound(tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}
	return fromDoc(&doc)
}

func (s *TripStore) ListTrips(ctx context.Context, filter ledger.TripFilter) ([]models.Trip, error) {
	q := bson.M{"seats_left": bson.M{"$gte": filter.MinSeatsLeft}}
	if filter.OriginCity != "" {
		q["origin_city"] = filter.OriginCity
	}
	if filter.DestinationCity != "" {
		q["destination_city"] = filter.DestinationCity
	}
	if filter.DepartureDate != "" {
		q["departure_date"] = filter.DepartureDate
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "departure_date", Value: 1}, {Key: "departure_time", Value: 1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.trips.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find trips: %w", err)
	}
	var docs []tripDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}

	out := make([]models.Trip, 0, len(docs))
	for i := range docs {
		t, err := fromDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *TripStore) Join(ctx context.Context, tripID, userID uuid.UUID, tickets int) (*models.Trip, error) {
	id, uid := tripID.String(), userID.String()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := s.now().UTC()

		// existing entry: increment in place
		doc, err := s.findAndUpdate(ctx,
			bson.M{"_id": id, "participants.user_id": uid, "seats_left": bson.M{"$gte": tickets}},
			bson.M{
				"$inc": bson.M{"participants.$.tickets": tickets, "seats_left": -tickets},
				"$set": bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// no entry yet: append one
			doc, err = s.findAndUpdate(ctx,
				bson.M{"_id": id, "participants.user_id": bson.M{"$ne": uid}, "seats_left": bson.M{"$gte": tickets}},
				bson.M{
					"$push": bson.M{"participants": participantDoc{UserID: uid, Tickets: tickets}},
					"$inc":  bson.M{"seats_left": -tickets},
					"$set":  bson.M{"updated_at": now},
				},
			)
			if err != nil {
				return nil, err
			}
		}
		if doc != nil {
			if err := s.addUserTrip(ctx, userID, tripID); err != nil {
				return nil, err
			}
			return fromDoc(doc)
		}

		current, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if current.SeatsLeft < tickets {
			return nil, &ledger.CapacityExceededError{TripID: tripID, Requested: tickets, Available: current.SeatsLeft}
		}
	}
	return nil, fmt.Errorf("join trip %s: %w", tripID, errConflict)
}

func (s *TripStore) RefundOne(ctx context.Context, tripID, userID uuid.UUID) (*models.Trip, bool, error) {
	id, uid := tripID.String(), userID.String()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := s.now().UTC()

		doc, err := s.findAndUpdate(ctx,
			bson.M{"_id": id, "participants": bson.M{"$elemMatch": bson.M{"user_id": uid, "tickets": bson.M{"$gt": 1}}}},
			bson.M{
				"$inc": bson.M{"participants.$.tickets": -1, "seats_left": 1},
				"$set": bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, false, err
		}
		if doc != nil {
			t, err := fromDoc(doc)
			return t, false, err
		}

		// last ticket: drop the entry
		doc, err = s.findAndUpdate(ctx,
			bson.M{"_id": id, "participants": bson.M{"$elemMatch": bson.M{"user_id": uid, "tickets": 1}}},
			bson.M{
				"$pull": bson.M{"participants": bson.M{"user_id": uid}},
				"$inc":  bson.M{"seats_left": 1},
				"$set":  bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, false, err
		}
		if doc != nil {
			if _, err := s.userTrips.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$pull": bson.M{"trips": id}}); err != nil {
				return nil, false, fmt.Errorf("retract user trip: %w", err)
			}
			t, err := fromDoc(doc)
			return t, true, err
		}

		current, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return nil, false, err
		}
		if _, ok := current.Participant(userID); !ok {
			return nil, false, ledger.ParticipantNotFound(tripID, userID)
		}
	}
	return nil, false, fmt.Errorf("refund ticket on trip %s: %w", tripID, errConflict)
}

func (s *TripStore) ToggleCancelled(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "cancelled", Value: bson.D{{Key: "$not", Value: bson.A{"$cancelled"}}}},
			{Key: "updated_at", Value: s.now().UTC()},
		}}},
	}
	doc, err := s.findAndUpdate(ctx, bson.M{"_id": tripID.String()}, pipeline)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ledger.TripNotFound(tripID)
	}
	return fromDoc(doc)
}

func (s *TripStore) Delete(ctx context.Context, tripID, requesterID uuid.UUID) (*models.Trip, error) {
	var doc tripDoc
	err := s.trips.FindOneAndDelete(ctx, bson.M{"_id": tripID.String(), "owner_id": requesterID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.GetTrip(ctx, tripID); err != nil {
			return nil, err
		}
		return nil, &ledger.AuthorizationError{Action: "delete", UserID: requesterID, TripID: tripID}
	}
	if err != nil {
		return nil, fmt.Errorf("delete trip: %w", err)
	}

	holders := []string{doc.OwnerID}
	for _, p := range doc.Participants {
		holders = append(holders, p.UserID)
	}
	if _, err := s.userTrips.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": holders}},
		bson.M{"$pull": bson.M{"trips": doc.ID}},
	); err != nil {
		return nil, fmt.Errorf("retract user trips: %w", err)
	}
	return fromDoc(&doc)
}

func (s *TripStore) UserTrips(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var doc userTripsDoc
	err := s.userTrips.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []uuid.UUID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user trips: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(doc.Trips))
	for _, raw := range doc.Trips {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("user trips of %s: %w", userID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *TripStore) addUserTrip(ctx context.Context, userID, tripID uuid.UUID) error {
	_, err := s.userTrips.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{"$addToSet": bson.M{"trips": tripID.String()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("add user trip: %w", err)
	}
	return nil
}

// findAndUpdate returns the updated document, or nil when filter matched nothing.
func (s *TripStore) findAndUpdate(ctx context.Context, filter, update any) (*tripDoc, error) {
	var doc tripDoc
	err := s.trips.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return &doc, nil
}

func toDoc(t *models.Trip) *tripDoc {
	participants := make([]participantDoc, 0, len(t.Participants))
	for _, p := range t.Participants {
		participants = append(participants, participantDoc{UserID: p.UserID.String(), Tickets: p.Tickets})
	}
	return &tripDoc{
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
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func fromDoc(d *tripDoc) (*models.Trip, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("trip id %q: %w", d.ID, err)
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner id %q: %w", d.OwnerID, err)
	}
	participants := make([]models.Participant, 0, len(d.Participants))
	for _, p := range d.Participants {
		uid, err := uuid.Parse(p.UserID)
		if err != nil {
			return nil, fmt.Errorf("participant id %q: %w", p.UserID, err)
		}
		participants = append(participants, models.Participant{UserID: uid, Tickets: p.Tickets})
	}
	return &models.Trip{
		ID:              id,
		OwnerID:         owner,
		OriginCity:      d.OriginCity,
		DestinationCity: d.DestinationCity,
		DepartureDate:   d.DepartureDate,
		ArrivalDate:     d.ArrivalDate,
		DepartureTime:   d.DepartureTime,
		ArrivalTime:     d.ArrivalTime,
		PricePerPerson:  d.PricePerPerson,
		MaxParticipants: d.MaxParticipants,
		SeatsLeft:       d.SeatsLeft,
		Participants:    participants,
		Description:     d.Description,
		VehicleType:     d.VehicleType,
		Cancelled:       d.Cancelled,
		Completed:       d.Completed,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}
