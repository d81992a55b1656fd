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

// ErrUnsupportedResponse is returned when the response status is neither
// ACCEPTED nor REJECTED.
var ErrUnsupportedResponse = errors.New("response status must be ACCEPTED or REJECTED")

// Respond applies an operator's decision to a PENDING request. Accepting also
// writes the assignment row in the same transaction, so a requester can never
// observe ACCEPTED without an assignment behind it.
func (service *requestService) Respond(ctx context.Context, in ports.RespondInput) (ports.RespondResult, error) {
	if in.Status != request.StatusAccepted && in.Status != request.StatusRejected {
		return ports.RespondResult{}, ErrUnsupportedResponse
	}

	var (
		updated       *request.RideRequest
		operator      *contracts.OperatorBrief
		correlationID = generateCorrelationID()
		respondedAt   = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.requestRepo.GetByID(txCtx, in.RequestID)
		if err != nil {
			return err
		}

		// run the transition through the entity so the guard logic lives in one place
		if in.Status == request.StatusAccepted {
			if err := r.Accept(in.OperatorID); err != nil {
				return err
			}
		} else {
			if err := r.Reject(); err != nil {
				return err
			}
		}

		// the conditional UPDATE re-checks PENDING so two racing operators
		// cannot both win even across transactions
		var operatorArg *string
		if in.Status == request.StatusAccepted {
			operatorArg = &in.OperatorID
		}
		if err := service.requestRepo.UpdateStatus(txCtx, in.RequestID, in.Status, operatorArg, respondedAt); err != nil {
			return err
		}

		if in.Status == request.StatusAccepted {
			a, err := request.NewAssignment(in.RequestID, in.OperatorID, in.OperatorName, in.VehicleModel, in.VehiclePlate, in.Rating)
			if err != nil {
				return err
			}
			if err := service.assignmentRepo.CreateAssignment(txCtx, a); err != nil {
				return err
			}
			operator = &contracts.OperatorBrief{
				OperatorID:   in.OperatorID,
				Name:         in.OperatorName,
				Rating:       in.Rating,
				VehicleModel: in.VehicleModel,
				VehiclePlate: in.VehiclePlate,
			}
		}
		updated = r

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_respond_failed", "Failed to apply operator response", err, map[string]any{
			"request_id":     in.RequestID,
			"operator_id":    in.OperatorID,
			"status":         in.Status.String(),
			"correlation_id": correlationID,
		})
		return ports.RespondResult{}, err
	}

	snapshot := recordOf(updated)
	statusMsg := contracts.RequestStatusMessage{
		RequestID: in.RequestID,
		Status:    in.Status.String(),
		Timestamp: respondedAt,
		Operator:  operator,
		Request:   &snapshot,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishRequestStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "request_status_publish_failed", "Failed to publish request status to RabbitMQ", err, map[string]any{
			"request_id":     in.RequestID,
			"correlation_id": correlationID,
		})
	}

	service.logger.Info(ctx, "request_responded", fmt.Sprintf("Request %s is now %s", in.RequestID, in.Status), map[string]any{
		"request_id":     in.RequestID,
		"operator_id":    in.OperatorID,
		"status":         in.Status.String(),
		"correlation_id": correlationID,
	})

	return ports.RespondResult{
		RequestID:   in.RequestID,
		Status:      in.Status.String(),
		RespondedAt: respondedAt.Format(time.RFC3339),
		Message:     fmt.Sprintf("Request %s", in.Status),
	}, nil
}
