package contracts

import "time"

// Envelope adds cross-cutting headers all messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // Correlation for tracing across services
	Producer      string    `json:"producer,omitempty"`       // Producer service name, e.g. "request-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // ISO-8601 send time (UTC)
}

// OperatorBrief is the operator/vehicle summary shown to a requester.
type OperatorBrief struct {
	OperatorID   string  `json:"operator_id"`
	Name         string  `json:"name,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	VehicleModel string  `json:"vehicle_model,omitempty"`
	VehiclePlate string  `json:"vehicle_plate,omitempty"`
}

// RequestRecord is the wire snapshot of a ride request as broadcast to relay
// clients and carried inside store-commit events.
type RequestRecord struct {
	RequestID     string    `json:"request_id"`
	RequestNumber string    `json:"request_number"`
	RequesterID   string    `json:"requester_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DistanceKM    float64   `json:"distance_km"`
	Price         float64   `json:"price"`
	ServiceType   string    `json:"service_type"`   // RIDE|DELIVERY|SHOPPING
	PaymentMethod string    `json:"payment_method"` // CASH|CREDIT_CARD|DEBIT_CARD|PIX
	Status        string    `json:"status"`         // PENDING|ACCEPTED|REJECTED|CANCELLED
	CreatedAt     time.Time `json:"created_at"`
}
