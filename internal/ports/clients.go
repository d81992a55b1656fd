package ports

import (
	"context"

	"zoomx/internal/domain/geo"
)

// Geocoder resolves a free-form address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// Route is what the routing collaborator returns for an origin/destination pair.
type Route struct {
	Polyline   string
	DistanceKM float64
}

// Router computes a road route between two resolved points.
type Router interface {
	Route(ctx context.Context, origin, destination geo.Point) (Route, error)
}

// Publisher sends a message to the broker. Satisfied by rabbitmq.MQPublisher.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// StatusSource is the tracker's view of the backend: the minimum surface
// needed to follow one request through its lifecycle.
type StatusSource interface {
	FetchStatus(ctx context.Context, requestID string) (string, error)
	FetchAssignment(ctx context.Context, requestID string) (AssignmentView, error)
	CancelRequest(ctx context.Context, requestID string) error
}
