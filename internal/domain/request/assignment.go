package request

import (
	"errors"
	"strings"
	"time"
)

// Assignment is the domain entity corresponding to the `assignments` table:
// the operator and vehicle attached to a request at acceptance time.
type Assignment struct {
	// Foreign keys; request_id is the table's primary key
	RequestID  string
	OperatorID string

	// Operator & vehicle details shown to the requester
	OperatorName string
	VehicleModel string
	VehiclePlate string
	Rating       float64

	AcceptedAt time.Time
}

var (
	ErrRequestIDRequired = errors.New("request id is required")
	ErrInvalidRating     = errors.New("rating must be between 0 and 5")
)

// NewAssignment constructs a new Assignment entity.
func NewAssignment(requestID, operatorID, operatorName, vehicleModel, vehiclePlate string, rating float64) (*Assignment, error) {
	if requestID = strings.TrimSpace(requestID); requestID == "" {
		return nil, ErrRequestIDRequired
	}
	if operatorID = strings.TrimSpace(operatorID); operatorID == "" {
		return nil, ErrOperatorRequired
	}
	if rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}

	return &Assignment{
		RequestID:    requestID,
		OperatorID:   operatorID,
		OperatorName: strings.TrimSpace(operatorName),
		VehicleModel: strings.TrimSpace(vehicleModel),
		VehiclePlate: strings.TrimSpace(vehiclePlate),
		Rating:       rating,
		AcceptedAt:   time.Now().UTC(),
	}, nil
}
