package postgres

import (
	"context"
	"errors"
	"fmt"

	"zoomx/internal/domain/request"
	"zoomx/internal/ports"

	"github.com/jackc/pgx/v5"
)

// AssignmentRepo persists operator assignments using pgx and plain SQL.
type AssignmentRepo struct{}

// NewAssignmentRepo constructs a new AssignmentRepo.
func NewAssignmentRepo() ports.AssignmentRepository {
	return &AssignmentRepo{}
}

// CreateAssignment inserts the assignment row written when an operator accepts.
func (repo *AssignmentRepo) CreateAssignment(ctx context.Context, a *request.Assignment) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignments (
			request_id, operator_id, operator_name,
			vehicle_model, vehicle_plate, rating, accepted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		a.RequestID,
		a.OperatorID,
		a.OperatorName,
		a.VehicleModel,
		a.VehiclePlate,
		a.Rating,
		a.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return nil
}

// GetByRequestID fetches the assignment for an accepted request.
// Returns request.ErrNotFound while the request is still unanswered.
func (repo *AssignmentRepo) GetByRequestID(ctx context.Context, requestID string) (*request.Assignment, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out request.Assignment
	err = tx.QueryRow(ctx, `
		SELECT request_id, operator_id, operator_name,
		       vehicle_model, vehicle_plate, rating, accepted_at
		FROM assignments
		WHERE request_id = $1
	`, requestID).Scan(
		&out.RequestID, &out.OperatorID, &out.OperatorName,
		&out.VehicleModel, &out.VehiclePlate, &out.Rating, &out.AcceptedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("query assignment: %w", err)
	}

	return &out, nil
}
