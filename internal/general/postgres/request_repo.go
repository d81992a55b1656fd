package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RequestRepo persists ride requests using pgx and plain SQL.
type RequestRepo struct{}

// NewRequestRepo constructs a new RequestRepo.
func NewRequestRepo() ports.RequestRepository {
	return &RequestRepo{}
}

const requestColumns = `
	id, created_at, updated_at, request_number, requester_id, operator_id,
	origin, destination, distance_km, price, service_type, payment_method,
	status, responded_at, cancelled_at, cancellation_reason`

// CreateRequest inserts a new ride request row.
func (repo *RequestRepo) CreateRequest(ctx context.Context, r *request.RideRequest) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// insert only the columns we actually have values for at creation time
	err = tx.QueryRow(ctx, `
		INSERT INTO ride_requests (
			request_number, requester_id, origin, destination,
			distance_km, price, service_type, payment_method, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		r.RequestNumber,
		r.RequesterID,
		r.Origin,
		r.Destination,
		r.DistanceKM,
		r.Price,
		r.ServiceType.String(),
		r.PaymentMethod.String(),
		r.Status.String(), // always "PENDING" at creation
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ride request: %w", err)
	}

	return nil
}

// GetByID fetches a request by primary key (uuid).
func (repo *RequestRepo) GetByID(ctx context.Context, id string) (*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests
		WHERE id = $1
	`, id)

	out, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, err
	}

	return out, nil
}

// UpdateStatus moves a PENDING request into ACCEPTED or REJECTED. The WHERE
// clause keeps the transition atomic: if another responder already won, zero
// rows change and the caller gets ErrAlreadyResponded.
func (repo *RequestRepo) UpdateStatus(ctx context.Context, id string, status request.Status, operatorID *string, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !status.Valid() || !request.StatusPending.CanTransitionTo(status) {
		return request.ErrInvalidStatusTransition
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ride_requests
		SET status = $1,
		    operator_id = $2,
		    responded_at = $3,
		    updated_at = now()
		WHERE id = $4
		  AND status = 'PENDING'
	`, status.String(), operatorID, ts, id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// either the row is missing or it already left PENDING
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ride_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check request existence: %w", err)
		}
		if !exists {
			return request.ErrNotFound
		}
		return request.ErrAlreadyResponded
	}

	return nil
}

// Cancel moves a PENDING request into CANCELLED with the same atomic guard.
func (repo *RequestRepo) Cancel(ctx context.Context, id, reason string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ride_requests
		SET status = 'CANCELLED',
		    cancelled_at = $1,
		    cancellation_reason = $2,
		    updated_at = now()
		WHERE id = $3
		  AND status = 'PENDING'
	`, cancelledAt, reasonArg, id)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ride_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check request existence: %w", err)
		}
		if !exists {
			return request.ErrNotFound
		}
		return request.ErrAlreadyResponded
	}

	return nil
}

// Delete removes the row entirely (board removals, not cancellations).
func (repo *RequestRepo) Delete(ctx context.Context, id string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM ride_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return request.ErrNotFound
	}

	return nil
}

// ListOpen returns PENDING requests, oldest first, for board snapshots.
func (repo *RequestRepo) ListOpen(ctx context.Context, limit int) ([]*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query open requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListByRequester returns recent requests for one requester.
func (repo *RequestRepo) ListByRequester(ctx context.Context, requesterID string, limit int) ([]*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, requesterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests by requester: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ----- scan helpers -----

func scanRequest(row pgx.Row) (*request.RideRequest, error) {
	var out request.RideRequest
	var serviceType, paymentMethod, status string

	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.RequestNumber, &out.RequesterID, &out.OperatorID,
		&out.Origin, &out.Destination, &out.DistanceKM, &out.Price, &serviceType, &paymentMethod,
		&status, &out.RespondedAt, &out.CancelledAt, &out.CancellationReason,
	)
	if err != nil {
		return nil, err
	}

	out.ServiceType = request.ServiceType(serviceType)
	out.PaymentMethod = request.PaymentMethod(paymentMethod)
	out.Status = request.Status(status)

	return &out, nil
}

func collectRequests(rows pgx.Rows) ([]*request.RideRequest, error) {
	var requests []*request.RideRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return requests, nil
}
