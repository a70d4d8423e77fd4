// Package payment captures trip payments through Omise. It never touches
// the trip ledger; seats are booked separately.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

var ErrInvalidCharge = errors.New("invalid charge parameters")

// ChargeRequest asks for Amount (in the currency's smallest unit) to be
// captured from the tokenized card.
type ChargeRequest struct {
	TripID    uuid.UUID
	UserID    uuid.UUID
	Tickets   int
	Amount    int64
	Currency  string
	CardToken string
}

// Charge is the provider's answer.
type Charge struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

// Charger captures payments.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// AmountFor converts price per person times tickets to the smallest
// currency unit.
func AmountFor(pricePerPerson float64, tickets int) int64 {
	return int64(math.Round(pricePerPerson*100)) * int64(tickets)
}

// OmiseCharger charges cards with omise-go.
type OmiseCharger struct {
	client *omise.Client
}

func NewOmiseCharger(publicKey, secretKey string) (*OmiseCharger, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	return &OmiseCharger{client: c}, nil
}

func (o *OmiseCharger) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Amount <= 0 || req.CardToken == "" || req.Currency == "" {
		return nil, ErrInvalidCharge
	}

	ch := &omise.Charge{}
	op := &operations.CreateCharge{
		Amount:   req.Amount,
		Currency: req.Currency,
		Card:     req.CardToken,
		Metadata: map[string]any{
			"trip_id": req.TripID.String(),
			"user_id": req.UserID.String(),
			"tickets": req.Tickets,
		},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// WithContext mutates the client, so each call binds ctx on its own copy.
	client := *o.client
	client.WithContext(ctx)
	if err := client.Do(ch, op); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	out := &Charge{
		ID:       ch.ID,
		Status:   string(ch.Status),
		Amount:   ch.Amount,
		Currency: ch.Currency,
	}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		out.FailureMessage = *ch.FailureMessage
	}
	return out, nil
}
