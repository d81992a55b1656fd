package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zoomx/internal/general/contracts"
	"zoomx/internal/general/logger"
	"zoomx/internal/general/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer feeds store-commit events from RabbitMQ into the hub. It is the
// only source of broadcasts, which is what keeps the fan-out ordered.
type Consumer struct {
	logger   *logger.Logger
	rabbitmq *rabbitmq.Client
	hub      *Hub
	prefetch int
}

// NewConsumer creates the relay's broker consumer.
func NewConsumer(log *logger.Logger, client *rabbitmq.Client, hub *Hub, prefetch int) *Consumer {
	return &Consumer{logger: log, rabbitmq: client, hub: hub, prefetch: prefetch}
}

// Run consumes the relay queue until ctx is cancelled, reconnecting with a
// flat delay when the channel dies.
func (c *Consumer) Run(ctx context.Context) {
	go func() {
		for {
			err := c.rabbitmq.Consume(
				ctx,
				contracts.QueueRelayBroadcast,
				"relay-broadcast",
				c.prefetch,
				c.handleDelivery,
			)
			if err != nil {
				c.logger.Error(ctx, "relay_consume_failed", "Relay consumer stopped, restarting", err, nil)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

// handleDelivery translates one broker event into a hub broadcast.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	switch {
	case d.RoutingKey == contracts.RouteRequestCreated:
		var msg contracts.RequestCreatedMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			c.logger.Error(ctx, "relay_event_decode_failed", "Failed to decode creation event", err,
				map[string]any{"size": len(d.Body)})
			return fmt.Errorf("decode: %w", err)
		}
		c.hub.BroadcastFrame(ctx, contracts.RelayTypeRequestCreated, msg.Request)

	case strings.HasPrefix(d.RoutingKey, contracts.RouteRequestStatusPrefix):
		var msg contracts.RequestStatusMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			c.logger.Error(ctx, "relay_event_decode_failed", "Failed to decode status event", err,
				map[string]any{"size": len(d.Body)})
			return fmt.Errorf("decode: %w", err)
		}
		if msg.Request == nil {
			// without a snapshot there is nothing to show on the board
			c.logger.Error(ctx, "relay_event_incomplete", "Status event without request snapshot", nil,
				map[string]any{"request_id": msg.RequestID})
			return nil
		}
		c.hub.BroadcastFrame(ctx, contracts.RelayTypeRequestUpdated, contracts.RelayUpdate{
			Request:  *msg.Request,
			Operator: msg.Operator,
		})

	case d.RoutingKey == contracts.RouteRequestRemoved:
		var msg contracts.RequestRemovedMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			c.logger.Error(ctx, "relay_event_decode_failed", "Failed to decode removal event", err,
				map[string]any{"size": len(d.Body)})
			return fmt.Errorf("decode: %w", err)
		}
		c.hub.BroadcastFrame(ctx, contracts.RelayTypeRequestRemoved, contracts.RelayRemoved{
			RequestID: msg.RequestID,
		})

	default:
		c.logger.Debug(ctx, "relay_event_ignored", "Ignoring event with unknown routing key",
			map[string]any{"routing_key": d.RoutingKey})
	}

	return nil
}
