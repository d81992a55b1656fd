package track

import (
	"context"
	"encoding/json"
	"time"

	"zoomx/internal/general/contracts"
	"zoomx/internal/general/logger"

	"github.com/gorilla/websocket"
)

// RelayFeed subscribes to the relay and converts broadcasts about the tracked
// request into nudges, so the tracker polls out-of-cycle instead of waiting
// for the next tick. The feed is advisory: losing it only costs latency,
// never correctness.
type RelayFeed struct {
	logger    *logger.Logger
	url       string
	token     string
	requestID string
	tracker   *Tracker
}

// NewRelayFeed wires a relay subscription for one tracked request.
func NewRelayFeed(log *logger.Logger, url, token, requestID string, tracker *Tracker) *RelayFeed {
	return &RelayFeed{logger: log, url: url, token: token, requestID: requestID, tracker: tracker}
}

// Run keeps a relay connection alive until ctx is cancelled, redialing with a
// flat delay on failure.
func (f *RelayFeed) Run(ctx context.Context) {
	go func() {
		for {
			if err := f.listen(ctx); err != nil && ctx.Err() == nil {
				f.logger.Debug(ctx, "relay_feed_lost", "Relay feed dropped, redialing", map[string]any{
					"error": err.Error(),
				})
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
		}
	}()
}

func (f *RelayFeed) listen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// first frame carries the token
	auth := map[string]string{"type": "auth", "token": "Bearer " + f.token}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}

	// close the socket when ctx dies so ReadMessage unblocks
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame contracts.RelayFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case contracts.RelayTypeRequestUpdated:
			var update contracts.RelayUpdate
			if err := json.Unmarshal(frame.Data, &update); err != nil {
				continue
			}
			if update.Request.RequestID == f.requestID {
				f.tracker.Nudge()
			}
		case contracts.RelayTypeRequestRemoved:
			var removed contracts.RelayRemoved
			if err := json.Unmarshal(frame.Data, &removed); err != nil {
				continue
			}
			if removed.RequestID == f.requestID {
				f.tracker.Nudge()
			}
		}
	}
}
