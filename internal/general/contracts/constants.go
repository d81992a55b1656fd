package contracts

// Exchanges
const (
	ExchangeRequestTopic = "request_topic"
)

// Queues
const (
	QueueRequestCreated = "request_created"
	QueueRequestStatus  = "request_status"
	QueueRelayBroadcast = "relay_broadcast"
)

// Routing patterns
const (
	RouteRequestCreated      = "request.created"
	RouteRequestStatusPrefix = "request.status." // {status}
	RouteRequestRemoved      = "request.removed"
)
