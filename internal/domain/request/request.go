package request

import (
	"errors"
	"strings"
	"time"
)

// RideRequest is the domain entity corresponding to the `ride_requests` table.
type RideRequest struct {
	// Identity & audit
	ID            string
	RequestNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Actors
	RequesterID string
	OperatorID  *string // nil until accepted

	// Trip
	Origin      string
	Destination string
	DistanceKM  float64
	Price       float64

	// Core state
	ServiceType   ServiceType
	PaymentMethod PaymentMethod
	Status        Status

	// Lifecycle timestamps
	RespondedAt *time.Time
	CancelledAt *time.Time

	// Additional info
	CancellationReason *string
}

var (
	ErrRequesterRequired       = errors.New("requester id is required")
	ErrRequestNumberRequired   = errors.New("request number is required")
	ErrOriginRequired          = errors.New("origin address is required")
	ErrDestinationRequired     = errors.New("destination address is required")
	ErrNegativeDistance        = errors.New("distance_km cannot be negative")
	ErrNegativePrice           = errors.New("price cannot be negative")
	ErrInvalidStatusTransition = errors.New("invalid request status transition")
	ErrOperatorRequired        = errors.New("operator id is required")
	ErrAlreadyResponded        = errors.New("request already has a response")
	ErrNotFound                = errors.New("ride request not found")
)

// NewRideRequest creates a new ride request in PENDING state.
func NewRideRequest(
	requestNumber, requesterID, origin, destination string,
	distanceKM, price float64,
	serviceType ServiceType,
	paymentMethod PaymentMethod,
) (*RideRequest, error) {
	if requestNumber = strings.TrimSpace(requestNumber); requestNumber == "" {
		return nil, ErrRequestNumberRequired
	}
	if requesterID = strings.TrimSpace(requesterID); requesterID == "" {
		return nil, ErrRequesterRequired
	}
	if origin = strings.TrimSpace(origin); origin == "" {
		return nil, ErrOriginRequired
	}
	if destination = strings.TrimSpace(destination); destination == "" {
		return nil, ErrDestinationRequired
	}
	if distanceKM < 0 {
		return nil, ErrNegativeDistance
	}
	if price < 0 {
		return nil, ErrNegativePrice
	}
	if !serviceType.Valid() {
		return nil, ErrInvalidServiceType
	}
	if !paymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := time.Now().UTC()
	return &RideRequest{
		RequestNumber: requestNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
		RequesterID:   requesterID,
		Origin:        origin,
		Destination:   destination,
		DistanceKM:    distanceKM,
		Price:         price,
		ServiceType:   serviceType,
		PaymentMethod: paymentMethod,
		Status:        StatusPending,
	}, nil
}

// Accept sets the operator and moves PENDING -> ACCEPTED.
func (request *RideRequest) Accept(operatorID string) error {
	if strings.TrimSpace(operatorID) == "" {
		return ErrOperatorRequired
	}
	if request.OperatorID != nil && *request.OperatorID != "" {
		return ErrAlreadyResponded
	}
	if !request.Status.CanTransitionTo(StatusAccepted) {
		return ErrInvalidStatusTransition
	}

	request.OperatorID = &operatorID
	now := time.Now().UTC()
	request.RespondedAt = &now
	request.setStatus(StatusAccepted)
	return nil
}

// Reject moves PENDING -> REJECTED.
func (request *RideRequest) Reject() error {
	if !request.Status.CanTransitionTo(StatusRejected) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	request.RespondedAt = &now
	request.setStatus(StatusRejected)
	return nil
}

// Cancel moves PENDING -> CANCELLED (terminal states stay put).
func (request *RideRequest) Cancel(reason string) error {
	if !request.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	request.CancelledAt = &now
	if rs := strings.TrimSpace(reason); rs != "" {
		request.CancellationReason = &rs
	}
	request.setStatus(StatusCancelled)
	return nil
}

// Open reports whether the request still awaits a response.
func (request *RideRequest) Open() bool {
	return request.Status == StatusPending
}

// ----- internal helpers -----

func (request *RideRequest) setStatus(status Status) {
	request.Status = status
	request.touch()
}

func (request *RideRequest) touch() {
	request.UpdatedAt = time.Now().UTC()
}
