package rabbitmq

import (
	"fmt"

	"zoomx/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchanges
	if err := ch.ExchangeDeclare(contracts.ExchangeRequestTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeRequestTopic, err)
	}

	// 2. Queues
	queues := []string{
		contracts.QueueRequestCreated,
		contracts.QueueRequestStatus,
		contracts.QueueRelayBroadcast,
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	// 3. Bindings. The relay queue hears every lifecycle event so connected
	// boards can be refreshed from a single consumer.
	bindings := []struct {
		queue      string
		routingKey string
	}{
		{contracts.QueueRequestCreated, contracts.RouteRequestCreated},
		{contracts.QueueRequestStatus, contracts.RouteRequestStatusPrefix + "*"},
		{contracts.QueueRelayBroadcast, contracts.RouteRequestCreated},
		{contracts.QueueRelayBroadcast, contracts.RouteRequestStatusPrefix + "*"},
		{contracts.QueueRelayBroadcast, contracts.RouteRequestRemoved},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, contracts.ExchangeRequestTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, contracts.ExchangeRequestTopic, err)
		}
	}

	return nil
}
