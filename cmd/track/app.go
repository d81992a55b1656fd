package trackapp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"zoomx/internal/general/config"
	"zoomx/internal/general/logger"
	"zoomx/internal/software/track"
)

// Run follows one request's lifecycle from the terminal until a terminal
// status is reached, the user quits, or ctx is cancelled.
func Run(ctx context.Context, requestID, token string) error {
	logger := logger.New("track")
	ctx = logger.WithRideRequestID(ctx, requestID)

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	source := track.NewRestSource(cfg.Tracking.BackendURL, token)
	tracker := track.New(logger, source, requestID, track.Options{
		PollInterval:     cfg.PollInterval(),
		CancelWindow:     cfg.CancelWindow(),
		FailureThreshold: cfg.Tracking.FailureThreshold,
	})

	tracker.Start(ctx)
	defer tracker.Stop()

	// the relay connection is just a latency optimization; tracking works
	// without it
	if cfg.Tracking.RelayURL != "" {
		feed := track.NewRelayFeed(logger, cfg.Tracking.RelayURL, token, requestID, tracker)
		feed.Run(ctx)
	}

	fmt.Printf("Tracking request %s (c=cancel, r=refresh, q=quit)\n", requestID)

	// stdin commands run beside the event stream
	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case commands <- strings.TrimSpace(strings.ToLower(scanner.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-commands:
			switch cmd {
			case "c", "cancel":
				cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := tracker.Cancel(cancelCtx)
				cancel()
				switch {
				case err == nil:
					// the cancelled event arrives through the stream
				case errors.Is(err, track.ErrWindowExpired):
					fmt.Println("Cancellation window has expired; the request can no longer be cancelled.")
				case errors.Is(err, track.ErrFinished):
					fmt.Println("The request already reached a final status.")
				default:
					fmt.Printf("Cancellation failed: %v (still tracking)\n", err)
				}
			case "r", "refresh":
				tracker.Nudge()
			case "q", "quit":
				return nil
			}

		case event, ok := <-tracker.Events():
			if !ok {
				return nil
			}
			if done := render(event); done {
				return nil
			}
		}
	}
}

// render prints one event and reports whether tracking is finished.
func render(e track.Event) bool {
	switch e.Kind {
	case track.EventCountdownTick:
		if e.SecondsLeft%15 == 0 {
			fmt.Printf("  %ds left to cancel\n", e.SecondsLeft)
		}
	case track.EventWindowExpired:
		fmt.Println("Cancellation window expired. Still waiting for a response...")
	case track.EventStatusChanged:
		fmt.Printf("Status changed: %s\n", e.Status)
	case track.EventAccepted:
		fmt.Println("Request ACCEPTED.")
		if e.Assignment != nil {
			fmt.Printf("  operator: %s (rating %.1f)\n", e.Assignment.OperatorName, e.Assignment.Rating)
			fmt.Printf("  vehicle:  %s %s\n", e.Assignment.VehicleModel, e.Assignment.VehiclePlate)
		}
		return true
	case track.EventRejected:
		fmt.Println("Request REJECTED.")
		return true
	case track.EventCancelled:
		fmt.Println("Request CANCELLED.")
		return true
	case track.EventDegraded:
		fmt.Printf("Connection degraded: %v (retrying in background)\n", e.Err)
	case track.EventError:
		fmt.Printf("Error: %v\n", e.Err)
	}
	return false
}
