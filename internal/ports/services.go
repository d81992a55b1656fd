package ports

import (
	"context"
	"time"

	"zoomx/internal/domain/request"
)

// ----- DTOs for Request Service -----

// CreateRequestInput is the validated input required to create a ride request.
type CreateRequestInput struct {
	RequesterID   string
	Origin        string
	Destination   string
	DistanceKM    float64
	Price         float64
	ServiceType   request.ServiceType
	PaymentMethod request.PaymentMethod
}

// CreateRequestResult is returned by RequestService.CreateRequest().
type CreateRequestResult struct {
	RequestID     string  `json:"request_id"`
	RequestNumber string  `json:"request_number"`
	Status        string  `json:"status"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DistanceKM    float64 `json:"distance_km"`
	Price         float64 `json:"price"`
	ServiceType   string  `json:"service_type"`
	PaymentMethod string  `json:"payment_method"`
	CreatedAt     string  `json:"created_at"`
}

// RespondInput is the validated input for POST /requests/{request_id}/response.
type RespondInput struct {
	RequestID    string // from path
	OperatorID   string // from token claims
	Status       request.Status
	OperatorName string
	VehicleModel string
	VehiclePlate string
	Rating       float64
}

// RespondResult matches the API response for an operator response.
type RespondResult struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	RespondedAt string `json:"responded_at"`
	Message     string `json:"message"`
}

// CancelRequestResult matches the API response for a requester cancellation.
type CancelRequestResult struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
	Message     string `json:"message"`
}

// RequestView is the read-model for a single request, returned by GetRequest.
type RequestView struct {
	RequestID     string  `json:"request_id"`
	RequestNumber string  `json:"request_number"`
	RequesterID   string  `json:"requester_id"`
	OperatorID    *string `json:"operator_id,omitempty"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DistanceKM    float64 `json:"distance_km"`
	Price         float64 `json:"price"`
	ServiceType   string  `json:"service_type"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	RespondedAt   string  `json:"responded_at,omitempty"`
	CancelledAt   string  `json:"cancelled_at,omitempty"`
}

// AssignmentView matches the API response for GET /requests/{request_id}/assignment.
type AssignmentView struct {
	RequestID    string  `json:"request_id"`
	OperatorID   string  `json:"operator_id"`
	OperatorName string  `json:"operator_name"`
	VehicleModel string  `json:"vehicle_model"`
	VehiclePlate string  `json:"vehicle_plate"`
	Rating       float64 `json:"rating"`
	AcceptedAt   string  `json:"accepted_at"`
}

// ----- Request Service Interface -----

// RequestService exposes the boundary for the request service. The relay
// drives the same methods as the HTTP handlers, so there is exactly one
// write path into the store.
type RequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (CreateRequestResult, error)
	Respond(ctx context.Context, in RespondInput) (RespondResult, error)
	CancelRequest(ctx context.Context, requestID, callerID, reason string) (CancelRequestResult, error)
	RemoveRequest(ctx context.Context, requestID, callerID string) error
	GetRequest(ctx context.Context, requestID string) (RequestView, error)
	GetAssignment(ctx context.Context, requestID string) (AssignmentView, error)
	ListOpen(ctx context.Context, limit int) ([]RequestView, error)
	ListMine(ctx context.Context, requesterID string, limit int) ([]RequestView, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for the Estimator -----

// EstimateInput is the validated input for POST /estimates.
type EstimateInput struct {
	OriginAddress      string
	DestinationAddress string
	ServiceType        request.ServiceType
	At                 time.Time // zero means "now"
}

// EstimateResult matches the API response for a fare/route estimate.
type EstimateResult struct {
	Polyline   string  `json:"polyline"`
	DistanceKM float64 `json:"distance_km"`
	Price      float64 `json:"price"`
	ETAMinutes int     `json:"eta_minutes"`
}

// EstimateService exposes the boundary for fare/route estimation.
type EstimateService interface {
	Estimate(ctx context.Context, in EstimateInput) (EstimateResult, error)
}
