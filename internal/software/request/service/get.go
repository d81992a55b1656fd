package service

import (
	"context"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/ports"
)

// GetRequest returns the current record for one request.
func (service *requestService) GetRequest(ctx context.Context, requestID string) (ports.RequestView, error) {
	var out ports.RequestView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.requestRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		out = viewOf(r)
		return nil
	})
	if err != nil {
		return ports.RequestView{}, err
	}

	return out, nil
}

// GetAssignment returns the operator assignment for an accepted request.
// Callers polling before acceptance get request.ErrNotFound.
func (service *requestService) GetAssignment(ctx context.Context, requestID string) (ports.AssignmentView, error) {
	var out ports.AssignmentView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		a, err := service.assignmentRepo.GetByRequestID(txCtx, requestID)
		if err != nil {
			return err
		}
		out = ports.AssignmentView{
			RequestID:    a.RequestID,
			OperatorID:   a.OperatorID,
			OperatorName: a.OperatorName,
			VehicleModel: a.VehicleModel,
			VehiclePlate: a.VehiclePlate,
			Rating:       a.Rating,
			AcceptedAt:   a.AcceptedAt.Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return ports.AssignmentView{}, err
	}

	return out, nil
}

// ListOpen returns the PENDING requests shown on a freshly connected board.
func (service *requestService) ListOpen(ctx context.Context, limit int) ([]ports.RequestView, error) {
	if limit <= 0 {
		limit = 100
	}

	var out []ports.RequestView
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		open, err := service.requestRepo.ListOpen(txCtx, limit)
		if err != nil {
			return err
		}
		for _, r := range open {
			out = append(out, viewOf(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListMine returns the caller's own requests, newest first.
func (service *requestService) ListMine(ctx context.Context, requesterID string, limit int) ([]ports.RequestView, error) {
	if limit <= 0 {
		limit = 50
	}

	var out []ports.RequestView
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		mine, err := service.requestRepo.ListByRequester(txCtx, requesterID, limit)
		if err != nil {
			return err
		}
		for _, r := range mine {
			out = append(out, viewOf(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func viewOf(r *request.RideRequest) ports.RequestView {
	view := ports.RequestView{
		RequestID:     r.ID,
		RequestNumber: r.RequestNumber,
		RequesterID:   r.RequesterID,
		OperatorID:    r.OperatorID,
		Origin:        r.Origin,
		Destination:   r.Destination,
		DistanceKM:    r.DistanceKM,
		Price:         r.Price,
		ServiceType:   r.ServiceType.String(),
		PaymentMethod: r.PaymentMethod.String(),
		Status:        r.Status.String(),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.RespondedAt != nil {
		view.RespondedAt = r.RespondedAt.Format(time.RFC3339)
	}
	if r.CancelledAt != nil {
		view.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return view
}
