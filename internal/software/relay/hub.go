package relay

import (
	"context"
	"encoding/json"
	"time"

	"zoomx/internal/general/contracts"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

const (
	registerBuffer  = 10
	broadcastBuffer = 256
	sendBuffer      = 64
	snapshotLimit   = 200
)

// Hub owns every relay connection. All registration, teardown and broadcast
// ordering goes through the Run loop, so connected clients observe events in
// the order they were consumed from the broker.
type Hub struct {
	logger *logger.Logger
	svc    ports.RequestService

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a relay hub bound to the request service.
func NewHub(log *logger.Logger, svc ports.RequestService) *Hub {
	return &Hub{
		logger:     log,
		svc:        svc,
		clients:    make(map[string]*Client),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan []byte, broadcastBuffer),
	}
}

// Run is the hub's single event loop. It must run in its own goroutine; it
// returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "hub_stopped", "Relay hub stopped", nil)
			return

		case client := <-h.register:
			h.clients[client.ID] = client
			h.logger.Info(ctx, "client_registered", "Relay client registered", map[string]any{
				"client_id": client.ID,
				"user_id":   client.UserID,
				"role":      client.Role.String(),
			})
			// the newcomer catches up via snapshot, not by event replay
			h.sendSnapshot(ctx, client)

		case client := <-h.unregister:
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				h.logger.Info(ctx, "client_unregistered", "Relay client unregistered", map[string]any{
					"client_id": client.ID,
					"user_id":   client.UserID,
				})
				h.purgeOwned(ctx, client)
			}

		case message := <-h.broadcast:
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// the client cannot keep up; drop it rather than stall the loop
					close(client.send)
					delete(h.clients, id)
					h.logger.Error(ctx, "client_dropped", "Relay client dropped (send buffer full)", nil, map[string]any{
						"client_id": client.ID,
						"user_id":   client.UserID,
					})
					// the readPump unregister will find the entry gone, so this
					// is the only chance to release what the connection owned
					h.purgeOwned(ctx, client)
				}
			}
		}
	}
}

// Broadcast queues a frame for every connected client.
func (h *Hub) Broadcast(ctx context.Context, message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Error(ctx, "broadcast_dropped", "Relay broadcast channel full", nil, nil)
	}
}

// BroadcastFrame marshals a typed frame and queues it for all clients.
func (h *Hub) BroadcastFrame(ctx context.Context, frameType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(ctx, "broadcast_marshal_failed", "Failed to marshal relay broadcast", err, nil)
		return
	}
	frame, err := json.Marshal(contracts.RelayFrame{Type: frameType, Data: payload})
	if err != nil {
		h.logger.Error(ctx, "broadcast_marshal_failed", "Failed to marshal relay frame", err, nil)
		return
	}
	h.Broadcast(ctx, frame)
}

// sendSnapshot pushes the current open-request list to one client.
func (h *Hub) sendSnapshot(ctx context.Context, client *Client) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	open, err := h.svc.ListOpen(fetchCtx, snapshotLimit)
	if err != nil {
		h.logger.Error(ctx, "snapshot_fetch_failed", "Failed to load open requests for snapshot", err, map[string]any{
			"client_id": client.ID,
		})
		client.sendError("failed to load snapshot")
		return
	}

	records := make([]contracts.RequestRecord, 0, len(open))
	for _, view := range open {
		records = append(records, recordFromView(view))
	}

	client.sendFrame(contracts.RelayTypeInitialSnapshot, contracts.RelaySnapshot{Requests: records})
}

// purgeOwned best-effort removes the still-pending requests submitted over a
// vanished connection. The removals flow through the request service, so the
// resulting broadcasts reach the remaining clients through the usual path.
func (h *Hub) purgeOwned(ctx context.Context, client *Client) {
	owned := client.ownedRequests()
	if len(owned) == 0 {
		return
	}

	purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for _, requestID := range owned {
		if err := h.svc.RemoveRequest(purgeCtx, requestID, client.UserID); err != nil {
			h.logger.Error(ctx, "ownership_purge_failed", "Failed to purge request after disconnect", err, map[string]any{
				"client_id":  client.ID,
				"request_id": requestID,
			})
		}
	}
}

func recordFromView(view ports.RequestView) contracts.RequestRecord {
	createdAt, _ := time.Parse(time.RFC3339, view.CreatedAt)
	return contracts.RequestRecord{
		RequestID:     view.RequestID,
		RequestNumber: view.RequestNumber,
		RequesterID:   view.RequesterID,
		Origin:        view.Origin,
		Destination:   view.Destination,
		DistanceKM:    view.DistanceKM,
		Price:         view.Price,
		ServiceType:   view.ServiceType,
		PaymentMethod: view.PaymentMethod,
		Status:        view.Status,
		CreatedAt:     createdAt,
	}
}
