package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/domain/user"
	"zoomx/internal/general/contracts"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// Router dispatches inbound relay frames into the request service. Mutations
// hit the store first; the resulting broadcasts come back through the broker
// consumer, so every connected board sees one ordered stream.
type Router struct {
	logger *logger.Logger
	svc    ports.RequestService
}

// NewRouter creates a relay frame router.
func NewRouter(log *logger.Logger, svc ports.RequestService) *Router {
	return &Router{logger: log, svc: svc}
}

// Route handles a single inbound frame from an authenticated client.
func (router *Router) Route(ctx context.Context, client *Client, frame contracts.RelayFrame) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch frame.Type {
	case contracts.RelayTypeSubmitRequest:
		router.handleSubmit(opCtx, client, frame.Data)
	case contracts.RelayTypeRespondRequest:
		router.handleRespond(opCtx, client, frame.Data)
	case contracts.RelayTypeRemoveRequest:
		router.handleRemove(opCtx, client, frame.Data)
	default:
		client.sendError("unknown frame type: " + frame.Type)
	}
}

func (router *Router) handleSubmit(ctx context.Context, client *Client, data json.RawMessage) {
	if client.Role != user.RoleRequester {
		client.sendError("only requesters may submit requests")
		return
	}

	var payload contracts.RelaySubmit
	if err := json.Unmarshal(data, &payload); err != nil {
		client.sendError("bad submit payload")
		return
	}

	st, err := request.ParseServiceType(payload.ServiceType)
	if err != nil {
		client.sendError("service_type must be one of: RIDE, DELIVERY, SHOPPING")
		return
	}
	pm, err := request.ParsePaymentMethod(payload.PaymentMethod)
	if err != nil {
		client.sendError("payment_method must be one of: CASH, CREDIT_CARD, DEBIT_CARD, PIX")
		return
	}

	res, err := router.svc.CreateRequest(ctx, ports.CreateRequestInput{
		RequesterID:   client.UserID, // identity always from the connection
		Origin:        payload.Origin,
		Destination:   payload.Destination,
		DistanceKM:    payload.DistanceKM,
		Price:         payload.Price,
		ServiceType:   st,
		PaymentMethod: pm,
	})
	if err != nil {
		router.logger.Error(ctx, "relay_submit_failed", "Failed to submit request over relay", err, map[string]any{
			"client_id": client.ID,
			"user_id":   client.UserID,
		})
		client.sendError(err.Error())
		return
	}

	// remember ownership so a vanished connection can be cleaned up
	client.trackOwned(res.RequestID)
}

func (router *Router) handleRespond(ctx context.Context, client *Client, data json.RawMessage) {
	if client.Role != user.RoleOperator {
		client.sendError("only operators may respond to requests")
		return
	}

	var payload contracts.RelayRespond
	if err := json.Unmarshal(data, &payload); err != nil {
		client.sendError("bad respond payload")
		return
	}

	status, err := request.ParseStatus(payload.Status)
	if err != nil {
		client.sendError("status must be ACCEPTED or REJECTED")
		return
	}

	_, err = router.svc.Respond(ctx, ports.RespondInput{
		RequestID:    payload.RequestID,
		OperatorID:   client.UserID,
		Status:       status,
		OperatorName: payload.OperatorName,
		VehicleModel: payload.VehicleModel,
		VehiclePlate: payload.VehiclePlate,
		Rating:       payload.Rating,
	})
	if err != nil {
		// unknown ids and lost races stay between us and the sender
		router.logger.Error(ctx, "relay_respond_failed", "Failed to apply relay response", err, map[string]any{
			"client_id":  client.ID,
			"user_id":    client.UserID,
			"request_id": payload.RequestID,
		})
		if errors.Is(err, request.ErrNotFound) {
			client.sendError("unknown request id: " + payload.RequestID)
		} else {
			client.sendError(err.Error())
		}
		return
	}
}

func (router *Router) handleRemove(ctx context.Context, client *Client, data json.RawMessage) {
	var payload contracts.RelayRemove
	if err := json.Unmarshal(data, &payload); err != nil {
		client.sendError("bad remove payload")
		return
	}

	if err := router.svc.RemoveRequest(ctx, payload.RequestID, client.UserID); err != nil {
		router.logger.Error(ctx, "relay_remove_failed", "Failed to remove request over relay", err, map[string]any{
			"client_id":  client.ID,
			"user_id":    client.UserID,
			"request_id": payload.RequestID,
		})
		if errors.Is(err, request.ErrNotFound) {
			client.sendError("unknown request id: " + payload.RequestID)
		} else {
			client.sendError(err.Error())
		}
		return
	}

	client.forgetOwned(payload.RequestID)
}
