package dto

// CreateTripRequest represents the payload to create a trip
type CreateTripRequest struct {
	OriginCity      string   `json:"origin_city"`
	DestinationCity string   `json:"destination_city"`
	DepartureDate   string   `json:"departure_date"` // YYYY-MM-DD
	ArrivalDate     string   `json:"arrival_date"`   // YYYY-MM-DD
	DepartureTime   string   `json:"departure_time"` // HH:MM
	ArrivalTime     string   `json:"arrival_time"`   // HH:MM
	PricePerPerson  *float64 `json:"price_per_person"`
	MaxParticipants *int     `json:"max_participants"`
	Description     string   `json:"description"`
	VehicleType     string   `json:"vehicle_type"` // Car | Mini-Bus
}

// JoinTripRequest books tickets on a trip
type JoinTripRequest struct {
	Tickets int `json:"tickets"`
}

// ParticipantResponse is one entry of a trip's participant list
type ParticipantResponse struct {
	UserID  string `json:"user_id"`
	Tickets int    `json:"tickets"`
}

// TripResponse represents a trip object in responses
type TripResponse struct {
	ID              string                `json:"id"`
	OwnerID         string                `json:"owner_id"`
	OriginCity      string                `json:"origin_city"`
	DestinationCity string                `json:"destination_city"`
	DepartureDate   string                `json:"departure_date"`
	ArrivalDate     string                `json:"arrival_date"`
	DepartureTime   string                `json:"departure_time"`
	ArrivalTime     string                `json:"arrival_time"`
	PricePerPerson  float64               `json:"price_per_person"`
	MaxParticipants int                   `json:"max_participants"`
	SeatsLeft       int                   `json:"seats_left"`
	Participants    []ParticipantResponse `json:"participants"`
	Description     string                `json:"description,omitempty"`
	VehicleType     string                `json:"vehicle_type,omitempty"`
	Cancelled       bool                  `json:"cancelled"`
	Completed       bool                  `json:"completed"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
}

// Pagination info
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// TripListResponse envelope
type TripListResponse struct {
	Trips      []TripResponse `json:"trips"`
	Pagination Pagination     `json:"pagination"`
}

// UserTripsResponse lists the trip ids on a user's trip list
type UserTripsResponse struct {
	TripIDs []string `json:"trip_ids"`
}
