package contracts

import "encoding/json"

// Relay frame types (server -> client).
const (
	RelayTypeInitialSnapshot = "initial_snapshot"
	RelayTypeRequestCreated  = "request_created"
	RelayTypeRequestUpdated  = "request_updated"
	RelayTypeRequestRemoved  = "request_removed"
	RelayTypeError           = "error"
)

// Relay frame types (client -> server).
const (
	RelayTypeSubmitRequest  = "submit_request"
	RelayTypeRespondRequest = "respond_request"
	RelayTypeRemoveRequest  = "remove_request"
)

// RelayFrame is the minimal envelope every relay message travels in.
type RelayFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RelaySnapshot carries the full open-request list sent on connect and after
// an ownership purge.
type RelaySnapshot struct {
	Requests []RequestRecord `json:"requests"`
}

// RelaySubmit is the payload of a "submit_request" frame. The server fills
// identity fields from the authenticated connection, never from the payload.
type RelaySubmit struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DistanceKM    float64 `json:"distance_km"`
	Price         float64 `json:"price"`
	ServiceType   string  `json:"service_type"`
	PaymentMethod string  `json:"payment_method"`
}

// RelayRespond is the payload of a "respond_request" frame (operators only).
type RelayRespond struct {
	RequestID    string  `json:"request_id"`
	Status       string  `json:"status"` // ACCEPTED | REJECTED
	OperatorName string  `json:"operator_name,omitempty"`
	VehicleModel string  `json:"vehicle_model,omitempty"`
	VehiclePlate string  `json:"vehicle_plate,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
}

// RelayRemove is the payload of a "remove_request" frame (owners only).
type RelayRemove struct {
	RequestID string `json:"request_id"`
}

// RelayUpdate is the payload of a "request_updated" broadcast.
type RelayUpdate struct {
	Request  RequestRecord  `json:"request"`
	Operator *OperatorBrief `json:"operator,omitempty"`
}

// RelayRemoved is the payload of a "request_removed" broadcast.
type RelayRemoved struct {
	RequestID string `json:"request_id"`
}

// RelayError is the payload of an "error" frame, sent to one client only.
type RelayError struct {
	Error string `json:"error"`
}
