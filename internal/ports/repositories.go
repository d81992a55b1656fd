package ports

import (
	"context"
	"time"

	"zoomx/internal/domain/request"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestRepository defines the methods for managing ride request data.
type RequestRepository interface {
	CreateRequest(ctx context.Context, r *request.RideRequest) error
	GetByID(ctx context.Context, id string) (*request.RideRequest, error)
	// UpdateStatus moves a request out of PENDING. It must refuse the write
	// when the stored row is no longer PENDING, so two racing responders
	// cannot both win.
	UpdateStatus(ctx context.Context, id string, status request.Status, operatorID *string, ts time.Time) error
	Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListOpen(ctx context.Context, limit int) ([]*request.RideRequest, error)
	ListByRequester(ctx context.Context, requesterID string, limit int) ([]*request.RideRequest, error)
}

// AssignmentRepository defines the methods for managing operator assignment data.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a *request.Assignment) error
	GetByRequestID(ctx context.Context, requestID string) (*request.Assignment, error)
}
