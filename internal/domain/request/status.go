package request

import (
	"errors"
	"strings"
)

// Status is a ride request status as stored in the `ride_requests` table.
//
// EXPIRED is deliberately absent: the cancellation-window expiry is a
// client-local observation and is never persisted or broadcast.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid request status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed request status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Terminal reports whether the status admits no further transitions.
func (status Status) Terminal() bool {
	switch status {
	case StatusAccepted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo specifies if the status can transition to the next status.
// Transitions are monotonic: a request leaves PENDING exactly once and a
// terminal status never changes.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected || next == StatusCancelled

	case StatusAccepted, StatusRejected, StatusCancelled:
		return false

	default:
		return false
	}
}
