package track

import (
	"context"
	"errors"
	"sync"
	"time"

	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// EventKind labels tracker events.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventAccepted      EventKind = "accepted"
	EventRejected      EventKind = "rejected"
	EventCancelled     EventKind = "cancelled"
	EventWindowExpired EventKind = "cancel_window_expired"
	EventCountdownTick EventKind = "countdown_tick"
	EventDegraded      EventKind = "degraded"
	EventError         EventKind = "error"
)

// Event is one observation emitted by the tracker.
type Event struct {
	Kind        EventKind
	Status      string                // current canonical status where applicable
	SecondsLeft int                   // countdown ticks only
	Assignment  *ports.AssignmentView // accepted only; nil when the follow-up fetch failed
	Err         error                 // error/degraded events
}

var (
	// ErrWindowExpired is returned by Cancel after the cancel window closed;
	// no network call is made.
	ErrWindowExpired = errors.New("cancel window has expired")
	// ErrFinished is returned by Cancel once a terminal status was observed.
	ErrFinished = errors.New("request already reached a terminal status")
)

// Options tune the tracker's timers. Zero values fall back to defaults.
type Options struct {
	PollInterval     time.Duration // canonical status poll period (default 5s)
	CancelWindow     time.Duration // free-cancellation countdown (default 90s)
	FailureThreshold int           // consecutive poll failures before degraded (default 3)
}

func (o *Options) fill() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.CancelWindow <= 0 {
		o.CancelWindow = 90 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
}

// cancelCommand asks the run loop to attempt a cancellation.
type cancelCommand struct {
	ctx   context.Context
	reply chan error
}

// Tracker follows one ride request through its lifecycle: it polls the
// canonical status, runs the local cancel countdown and surfaces changes as
// events. All timer state lives inside a single goroutine; Stop tears
// everything down through one context.
type Tracker struct {
	logger    *logger.Logger
	source    ports.StatusSource
	requestID string
	opts      Options

	events  chan Event
	nudge   chan struct{}
	cancels chan cancelCommand

	runCtx    context.Context
	runCancel context.CancelFunc
	done      chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a tracker for one request. Call Start to begin polling.
func New(log *logger.Logger, source ports.StatusSource, requestID string, opts Options) *Tracker {
	opts.fill()
	return &Tracker{
		logger:    log,
		source:    source,
		requestID: requestID,
		opts:      opts,
		events:    make(chan Event, 32),
		nudge:     make(chan struct{}, 1),
		cancels:   make(chan cancelCommand),
		done:      make(chan struct{}),
	}
}

// Events returns the tracker's event stream. The channel closes when the
// tracker finishes or is stopped.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// Start launches the tracking goroutine. Subsequent calls are no-ops.
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		t.runCtx, t.runCancel = context.WithCancel(ctx)
		go t.run()
	})
}

// Nudge triggers an immediate out-of-cycle poll (relay hint or manual refresh).
func (t *Tracker) Nudge() {
	select {
	case t.nudge <- struct{}{}:
	default:
		// a poll is already queued
	}
}

// Cancel asks the backend to cancel the tracked request. It is rejected
// locally, with no network call, when the cancel window has expired or a
// terminal status was already observed. On a backend failure the tracker
// keeps running and the error is returned.
func (t *Tracker) Cancel(ctx context.Context) error {
	cmd := cancelCommand{ctx: ctx, reply: make(chan error, 1)}

	select {
	case t.cancels <- cmd:
	case <-t.done:
		return ErrFinished
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop tears the tracker down. It is idempotent, and after it returns no
// further events are emitted and no further network calls are made.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		if t.runCancel != nil {
			t.runCancel()
			<-t.done
		} else {
			// never started; burn startOnce so a late Start cannot launch
			// the loop against already-closed channels
			t.startOnce.Do(func() {})
			close(t.done)
			close(t.events)
		}
	})
}

// ----- run loop -----

type loopState struct {
	lastStatus    string
	firstFetch    bool
	secondsLeft   int
	windowExpired bool
	failures      int
	degraded      bool
}

func (t *Tracker) run() {
	defer close(t.events)
	defer close(t.done)

	state := &loopState{
		firstFetch:  true,
		secondsLeft: int(t.opts.CancelWindow / time.Second),
	}

	pollTicker := time.NewTicker(t.opts.PollInterval)
	defer pollTicker.Stop()
	countdown := time.NewTicker(time.Second)
	defer countdown.Stop()

	// first fetch happens immediately, not one interval in
	if t.poll(state) {
		return
	}

	for {
		select {
		case <-t.runCtx.Done():
			return

		case <-pollTicker.C:
			if t.poll(state) {
				return
			}

		case <-t.nudge:
			if t.poll(state) {
				return
			}

		case <-countdown.C:
			if state.windowExpired {
				continue
			}
			state.secondsLeft--
			if state.secondsLeft > 0 {
				t.emit(Event{Kind: EventCountdownTick, Status: state.lastStatus, SecondsLeft: state.secondsLeft})
				continue
			}
			state.windowExpired = true
			countdown.Stop()
			t.emit(Event{Kind: EventWindowExpired, Status: state.lastStatus})

		case cmd := <-t.cancels:
			if t.handleCancel(state, cmd) {
				return
			}
		}
	}
}

// poll fetches the canonical status once. It returns true when the tracker
// reached a terminal state and the loop should exit.
func (t *Tracker) poll(state *loopState) bool {
	ctx, cancel := context.WithTimeout(t.runCtx, t.opts.PollInterval)
	status, err := t.source.FetchStatus(ctx, t.requestID)
	cancel()

	if err != nil {
		if t.runCtx.Err() != nil {
			return true
		}
		state.failures++
		t.logger.Debug(t.runCtx, "poll_failed", "Status poll failed, retrying next tick", map[string]any{
			"request_id": t.requestID,
			"failures":   state.failures,
		})
		if state.failures == t.opts.FailureThreshold && !state.degraded {
			state.degraded = true
			t.emit(Event{Kind: EventDegraded, Status: state.lastStatus, Err: err})
		}
		return false
	}

	state.failures = 0
	state.degraded = false

	changed := status != state.lastStatus && !state.firstFetch
	state.firstFetch = false
	state.lastStatus = status

	if changed {
		t.emit(Event{Kind: EventStatusChanged, Status: status})
	}

	switch status {
	case "ACCEPTED":
		// one follow-up fetch; a failure does not undo the acceptance
		assignment := t.fetchAssignment()
		t.emit(Event{Kind: EventAccepted, Status: status, Assignment: assignment})
		return true
	case "REJECTED":
		t.emit(Event{Kind: EventRejected, Status: status})
		return true
	case "CANCELLED":
		// cancelled from elsewhere; terminal all the same
		t.emit(Event{Kind: EventCancelled, Status: status})
		return true
	}

	return false
}

func (t *Tracker) fetchAssignment() *ports.AssignmentView {
	ctx, cancel := context.WithTimeout(t.runCtx, t.opts.PollInterval)
	defer cancel()

	a, err := t.source.FetchAssignment(ctx, t.requestID)
	if err != nil {
		t.emit(Event{Kind: EventError, Status: "ACCEPTED", Err: err})
		return nil
	}
	return &a
}

// handleCancel runs a cancel attempt inside the loop. Returns true when the
// loop should exit (cancellation succeeded).
func (t *Tracker) handleCancel(state *loopState, cmd cancelCommand) bool {
	if state.windowExpired {
		cmd.reply <- ErrWindowExpired
		return false
	}
	if terminalStatus(state.lastStatus) {
		cmd.reply <- ErrFinished
		return false
	}

	if err := t.source.CancelRequest(cmd.ctx, t.requestID); err != nil {
		// timers keep running; the caller may retry
		t.emit(Event{Kind: EventError, Status: state.lastStatus, Err: err})
		cmd.reply <- err
		return false
	}

	state.lastStatus = "CANCELLED"
	t.emit(Event{Kind: EventCancelled, Status: "CANCELLED"})
	cmd.reply <- nil
	return true
}

func (t *Tracker) emit(e Event) {
	select {
	case t.events <- e:
	case <-t.runCtx.Done():
	}
}

func terminalStatus(s string) bool {
	switch s {
	case "ACCEPTED", "REJECTED", "CANCELLED":
		return true
	}
	return false
}
