package service

import (
	"context"
	"fmt"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/contracts"
	"zoomx/internal/ports"
)

// CreateRequest creates a new ride request in PENDING state and announces it
// to the relay once the row is committed.
func (service *requestService) CreateRequest(ctx context.Context, in ports.CreateRequestInput) (ports.CreateRequestResult, error) {
	var (
		created       *request.RideRequest
		requestNumber = generateRequestNumber()
		correlationID = generateCorrelationID()
	)

	// validate and persist within one transaction
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := request.NewRideRequest(
			requestNumber,
			in.RequesterID,
			in.Origin,
			in.Destination,
			in.DistanceKM,
			in.Price,
			in.ServiceType,
			in.PaymentMethod,
		)
		if err != nil {
			return err
		}

		if err := service.requestRepo.CreateRequest(txCtx, r); err != nil {
			return err
		}
		created = r

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_create_failed", "Failed to create ride request", err, map[string]any{
			"requester_id":   in.RequesterID,
			"request_number": requestNumber,
			"correlation_id": correlationID,
		})
		return ports.CreateRequestResult{}, err
	}

	// the row is committed; creation event failures only delay relay fan-out
	msg := contracts.RequestCreatedMessage{
		Request: recordOf(created),
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishRequestCreated(ctx, msg); err != nil {
		service.logger.Error(ctx, "request_created_publish_failed", "Failed to publish request creation to RabbitMQ", err, map[string]any{
			"request_id":     created.ID,
			"correlation_id": correlationID,
		})
	}

	service.logger.Info(ctx, "request_created", fmt.Sprintf("Ride request %s created", created.ID), map[string]any{
		"request_id":     created.ID,
		"request_number": requestNumber,
		"requester_id":   in.RequesterID,
		"correlation_id": correlationID,
	})

	return ports.CreateRequestResult{
		RequestID:     created.ID,
		RequestNumber: created.RequestNumber,
		Status:        created.Status.String(),
		Origin:        created.Origin,
		Destination:   created.Destination,
		DistanceKM:    created.DistanceKM,
		Price:         created.Price,
		ServiceType:   created.ServiceType.String(),
		PaymentMethod: created.PaymentMethod.String(),
		CreatedAt:     created.CreatedAt.Format(time.RFC3339),
	}, nil
}
