package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/contracts"
	"zoomx/internal/ports"
)

// ErrNotOwner is returned when a caller tries to cancel or remove a request
// belonging to someone else.
var ErrNotOwner = errors.New("only the requester who created the request may do this")

// CancelRequest cancels a PENDING request on behalf of its owner.
func (service *requestService) CancelRequest(ctx context.Context, requestID, callerID, reason string) (ports.CancelRequestResult, error) {
	var (
		updated       *request.RideRequest
		correlationID = generateCorrelationID()
		cancelledAt   = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.requestRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if r.RequesterID != callerID {
			return ErrNotOwner
		}

		if err := r.Cancel(reason); err != nil {
			return err
		}

		if err := service.requestRepo.Cancel(txCtx, requestID, reason, cancelledAt); err != nil {
			return err
		}
		updated = r

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_cancel_failed", "Failed to cancel ride request", err, map[string]any{
			"request_id":     requestID,
			"caller_id":      callerID,
			"correlation_id": correlationID,
		})
		return ports.CancelRequestResult{}, err
	}

	snapshot := recordOf(updated)
	statusMsg := contracts.RequestStatusMessage{
		RequestID: requestID,
		Status:    request.StatusCancelled.String(),
		Timestamp: cancelledAt,
		Request:   &snapshot,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishRequestStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "request_status_publish_failed", "Failed to publish request status to RabbitMQ", err, map[string]any{
			"request_id":     requestID,
			"correlation_id": correlationID,
		})
	}

	service.logger.Info(ctx, "request_cancelled", fmt.Sprintf("Request %s cancelled", requestID), map[string]any{
		"request_id":     requestID,
		"caller_id":      callerID,
		"correlation_id": correlationID,
	})

	return ports.CancelRequestResult{
		RequestID:   requestID,
		Status:      request.StatusCancelled.String(),
		CancelledAt: cancelledAt.Format(time.RFC3339),
		Message:     "Request cancelled",
	}, nil
}

// RemoveRequest deletes a request from the board entirely. Used when a relay
// owner asks to withdraw, or by the relay itself when the owner's connection
// is gone. Terminal requests can be removed too; the broadcast just clears
// them from connected boards.
func (service *requestService) RemoveRequest(ctx context.Context, requestID, callerID string) error {
	correlationID := generateCorrelationID()

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.requestRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if r.RequesterID != callerID {
			return ErrNotOwner
		}

		return service.requestRepo.Delete(txCtx, requestID)
	})
	if err != nil {
		service.logger.Error(ctx, "request_remove_failed", "Failed to remove ride request", err, map[string]any{
			"request_id":     requestID,
			"caller_id":      callerID,
			"correlation_id": correlationID,
		})
		return err
	}

	msg := contracts.RequestRemovedMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishRequestRemoved(ctx, msg); err != nil {
		service.logger.Error(ctx, "request_removed_publish_failed", "Failed to publish request removal to RabbitMQ", err, map[string]any{
			"request_id":     requestID,
			"correlation_id": correlationID,
		})
	}

	service.logger.Info(ctx, "request_removed", fmt.Sprintf("Request %s removed", requestID), map[string]any{
		"request_id":     requestID,
		"caller_id":      callerID,
		"correlation_id": correlationID,
	})

	return nil
}
