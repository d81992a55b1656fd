package contracts

import "time"

// RequestCreatedMessage is published by Request Service after a ride request
// row is committed. Routing key: "request.created" on ExchangeRequestTopic.
type RequestCreatedMessage struct {
	Request RequestRecord `json:"request"`
	Envelope
}

// RequestStatusMessage is published by Request Service after a status
// transition is committed. Routing key: "request.status.{status}" on
// ExchangeRequestTopic.
type RequestStatusMessage struct {
	RequestID string         `json:"request_id"`
	Status    string         `json:"status"` // ACCEPTED|REJECTED|CANCELLED
	Timestamp time.Time      `json:"timestamp"`
	Operator  *OperatorBrief `json:"operator,omitempty"` // set on ACCEPTED
	Request   *RequestRecord `json:"request,omitempty"`  // full snapshot for relay fan-out
	Envelope
}

// RequestRemovedMessage is published when a request leaves the open set for a
// reason other than a status transition (owner connection vanished).
// Routing key: "request.removed" on ExchangeRequestTopic.
type RequestRemovedMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
