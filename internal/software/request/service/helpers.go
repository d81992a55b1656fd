package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/contracts"
)

// generateRequestNumber returns an ID like: REQ_YYYYMMDD_HHMMSS_XXX
// where XXX is a monotonic millisecond fragment to reduce collisions.
func generateRequestNumber() string {
	now := time.Now().UTC()
	return fmt.Sprintf("REQ_%04d%02d%02d_%02d%02d%02d_%03d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1e6, // ms
	)
}

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// recordOf maps the domain entity onto the wire snapshot.
func recordOf(r *request.RideRequest) contracts.RequestRecord {
	return contracts.RequestRecord{
		RequestID:     r.ID,
		RequestNumber: r.RequestNumber,
		RequesterID:   r.RequesterID,
		Origin:        r.Origin,
		Destination:   r.Destination,
		DistanceKM:    r.DistanceKM,
		Price:         r.Price,
		ServiceType:   r.ServiceType.String(),
		PaymentMethod: r.PaymentMethod.String(),
		Status:        r.Status.String(),
		CreatedAt:     r.CreatedAt,
	}
}

// publishRequestCreated sends a creation event using routing key "request.created".
func (service *requestService) publishRequestCreated(ctx context.Context, msg contracts.RequestCreatedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeRequestTopic, contracts.RouteRequestCreated, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "request_created_published", "Published request creation to RabbitMQ", map[string]any{
		"routing_key": contracts.RouteRequestCreated,
	})

	return nil
}

// publishRequestStatus sends a status update using routing key
// request.status.{status}, e.g. request.status.accepted.
func (service *requestService) publishRequestStatus(ctx context.Context, msg contracts.RequestStatusMessage) error {
	routingKey := contracts.RouteRequestStatusPrefix + strings.ToLower(msg.Status)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeRequestTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "request_status_published", "Published request status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})

	return nil
}

// publishRequestRemoved announces that a request left the open set without a
// status transition (board removal).
func (service *requestService) publishRequestRemoved(ctx context.Context, msg contracts.RequestRemovedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeRequestTopic, contracts.RouteRequestRemoved, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "request_removed_published", "Published request removal to RabbitMQ", map[string]any{
		"routing_key": contracts.RouteRequestRemoved,
	})

	return nil
}
