package dto

// CreateChargeRequest pays for tickets on a trip with a tokenized card
type CreateChargeRequest struct {
	TripID    string `json:"trip_id"`
	Tickets   int    `json:"tickets"`
	CardToken string `json:"card_token"`
}

type ChargeResponse struct {
	ChargeID       string `json:"charge_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}
