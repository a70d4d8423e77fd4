package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports missing or malformed trip fields.
// Fields maps each offending field to a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NotFoundError reports an absent trip or participant entry.
type NotFoundError struct {
	Resource string // "trip" or "participant"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AuthorizationError reports a non-owner attempting an owner-only action.
type AuthorizationError struct {
	Action string
	UserID uuid.UUID
	TripID uuid.UUID
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s trip %s", e.UserID, e.Action, e.TripID)
}

// CapacityExceededError reports a join that would drive seats left below zero.
type CapacityExceededError struct {
	TripID    uuid.UUID
	Requested int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("trip %s has %d seats left, %d requested", e.TripID, e.Available, e.Requested)
}

// TripNotFound builds the error returned for an unknown trip id.
func TripNotFound(id uuid.UUID) error {
	return &NotFoundError{Resource: "trip", ID: id.String()}
}

// ParticipantNotFound builds the error returned when the user holds no entry on the trip.
func ParticipantNotFound(tripID, userID uuid.UUID) error {
	return &NotFoundError{Resource: "participant", ID: tripID.String() + "/" + userID.String()}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAuthorization reports whether err is, or wraps, an *AuthorizationError.
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsCapacityExceeded reports whether err is, or wraps, a *CapacityExceededError.
func IsCapacityExceeded(err error) bool {
	var target *CapacityExceededError
	return errors.As(err, &target)
}
