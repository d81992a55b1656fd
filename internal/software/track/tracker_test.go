package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// fakeSource is a scriptable StatusSource.
type fakeSource struct {
	mu sync.Mutex

	status    string
	statusErr error

	assignment ports.AssignmentView
	assignErr  error

	cancelErr error

	fetchCalls  int
	cancelCalls int
}

func (s *fakeSource) FetchStatus(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.statusErr != nil {
		return "", s.statusErr
	}
	return s.status, nil
}

func (s *fakeSource) FetchAssignment(_ context.Context, _ string) (ports.AssignmentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignErr != nil {
		return ports.AssignmentView{}, s.assignErr
	}
	return s.assignment, nil
}

func (s *fakeSource) CancelRequest(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCalls++
	return s.cancelErr
}

func (s *fakeSource) set(fn func(*fakeSource)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *fakeSource) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func (s *fakeSource) cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCalls
}

func fastOptions() Options {
	return Options{
		PollInterval:     10 * time.Millisecond,
		CancelWindow:     time.Hour, // countdown stays out of the way unless a test shrinks it
		FailureThreshold: 3,
	}
}

func newTracker(t *testing.T, source *fakeSource, opts Options) *Tracker {
	t.Helper()
	tr := New(logger.New("track-test"), source, "req-1", opts)
	tr.Start(context.Background())
	t.Cleanup(tr.Stop)
	return tr
}

// waitKind reads events until one of the wanted kind arrives, skipping
// countdown ticks and any other noise.
func waitKind(t *testing.T, tr *Tracker, kind EventKind) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-tr.Events():
			require.True(t, ok, "event channel closed before %s", kind)
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

// waitClosed asserts the event channel closes, returning everything read on
// the way out.
func waitClosed(t *testing.T, tr *Tracker) []Event {
	t.Helper()

	var seen []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-tr.Events():
			if !ok {
				return seen
			}
			seen = append(seen, e)
		case <-deadline:
			t.Fatal("timed out waiting for event channel to close")
		}
	}
}

func TestFirstFetchEmitsNoStatusChange(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	tr := newTracker(t, source, fastOptions())

	// let several polls complete
	require.Eventually(t, func() bool { return source.fetches() >= 3 }, time.Second, 5*time.Millisecond)
	tr.Stop()

	for _, e := range waitClosed(t, tr) {
		require.NotEqual(t, EventStatusChanged, e.Kind)
	}
}

func TestStatusChangeToAcceptedEmitsOnce(t *testing.T) {
	source := &fakeSource{
		status:     "PENDING",
		assignment: ports.AssignmentView{RequestID: "req-1", OperatorID: "op-1", OperatorName: "Maria"},
	}
	tr := newTracker(t, source, fastOptions())

	require.Eventually(t, func() bool { return source.fetches() >= 1 }, time.Second, time.Millisecond)
	source.set(func(s *fakeSource) { s.status = "ACCEPTED" })

	changed := waitKind(t, tr, EventStatusChanged)
	require.Equal(t, "ACCEPTED", changed.Status)

	accepted := waitKind(t, tr, EventAccepted)
	require.NotNil(t, accepted.Assignment)
	require.Equal(t, "op-1", accepted.Assignment.OperatorID)

	// terminal status ends the stream
	waitClosed(t, tr)
}

func TestAcceptedOnFirstFetch(t *testing.T) {
	source := &fakeSource{status: "ACCEPTED", assignment: ports.AssignmentView{OperatorID: "op-1"}}
	tr := newTracker(t, source, fastOptions())

	accepted := waitKind(t, tr, EventAccepted)
	require.NotNil(t, accepted.Assignment)

	for _, e := range waitClosed(t, tr) {
		require.NotEqual(t, EventStatusChanged, e.Kind, "first fetch must not raise a change alert")
	}
}

func TestAcceptanceStandsWhenAssignmentFetchFails(t *testing.T) {
	source := &fakeSource{status: "ACCEPTED", assignErr: errors.New("assignment fetch 500")}
	tr := newTracker(t, source, fastOptions())

	failure := waitKind(t, tr, EventError)
	require.Error(t, failure.Err)

	accepted := waitKind(t, tr, EventAccepted)
	require.Nil(t, accepted.Assignment)
	waitClosed(t, tr)
}

func TestRejectionEndsTracking(t *testing.T) {
	source := &fakeSource{status: "REJECTED"}
	tr := newTracker(t, source, fastOptions())

	waitKind(t, tr, EventRejected)
	waitClosed(t, tr)
}

func TestDegradedAfterConsecutiveFailures(t *testing.T) {
	source := &fakeSource{statusErr: errors.New("connection refused")}
	tr := newTracker(t, source, fastOptions())

	degraded := waitKind(t, tr, EventDegraded)
	require.Error(t, degraded.Err)
	require.GreaterOrEqual(t, source.fetches(), 3)

	// recovery: polling continues and a success clears the failure streak
	source.set(func(s *fakeSource) { s.statusErr = nil; s.status = "REJECTED" })
	waitKind(t, tr, EventRejected)
	waitClosed(t, tr)
}

func TestDegradedEmittedOnlyOncePerOutage(t *testing.T) {
	source := &fakeSource{statusErr: errors.New("connection refused")}
	tr := newTracker(t, source, fastOptions())

	waitKind(t, tr, EventDegraded)
	require.Eventually(t, func() bool { return source.fetches() >= 8 }, time.Second, time.Millisecond)
	tr.Stop()

	degraded := 0
	for _, e := range waitClosed(t, tr) {
		if e.Kind == EventDegraded {
			degraded++
		}
	}
	require.Zero(t, degraded, "only the threshold crossing emits the degraded event")
}

func TestNudgeForcesImmediatePoll(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	opts := fastOptions()
	opts.PollInterval = time.Hour // only the initial poll and nudges fetch

	tr := newTracker(t, source, opts)
	require.Eventually(t, func() bool { return source.fetches() == 1 }, time.Second, time.Millisecond)

	source.set(func(s *fakeSource) { s.status = "ACCEPTED" })
	tr.Nudge()

	waitKind(t, tr, EventAccepted)
}

func TestCancelSucceedsInsideWindow(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	tr := newTracker(t, source, fastOptions())

	require.NoError(t, tr.Cancel(context.Background()))
	require.Equal(t, 1, source.cancels())

	events := waitClosed(t, tr)
	var cancelled bool
	for _, e := range events {
		if e.Kind == EventCancelled {
			cancelled = true
		}
	}
	require.True(t, cancelled)
}

func TestCancelRejectedAfterWindowExpires(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	opts := fastOptions()
	opts.CancelWindow = time.Second

	tr := newTracker(t, source, opts)
	waitKind(t, tr, EventWindowExpired)

	require.ErrorIs(t, tr.Cancel(context.Background()), ErrWindowExpired)
	require.Zero(t, source.cancels(), "an expired window must not reach the backend")

	// the tracker keeps following the request after the refusal
	source.set(func(s *fakeSource) { s.status = "ACCEPTED" })
	waitKind(t, tr, EventAccepted)
}

func TestCancelBackendFailureKeepsTracking(t *testing.T) {
	backendErr := errors.New("cancel 502")
	source := &fakeSource{status: "PENDING", cancelErr: backendErr}
	tr := newTracker(t, source, fastOptions())

	require.ErrorIs(t, tr.Cancel(context.Background()), backendErr)
	require.Equal(t, 1, source.cancels())

	// a retry after the backend recovers goes through
	source.set(func(s *fakeSource) { s.cancelErr = nil })
	require.NoError(t, tr.Cancel(context.Background()))
	waitClosed(t, tr)
}

func TestCancelAfterTerminalStatus(t *testing.T) {
	source := &fakeSource{status: "REJECTED"}
	tr := newTracker(t, source, fastOptions())

	waitKind(t, tr, EventRejected)
	waitClosed(t, tr)

	require.ErrorIs(t, tr.Cancel(context.Background()), ErrFinished)
	require.Zero(t, source.cancels())
}

func TestCountdownTicksReportSecondsLeft(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	opts := fastOptions()
	opts.CancelWindow = 3 * time.Second

	tr := newTracker(t, source, opts)

	tick := waitKind(t, tr, EventCountdownTick)
	require.Greater(t, tick.SecondsLeft, 0)
	require.Less(t, tick.SecondsLeft, 3)
}

func TestStopIsIdempotentAndHaltsPolling(t *testing.T) {
	source := &fakeSource{status: "PENDING"}
	tr := newTracker(t, source, fastOptions())

	require.Eventually(t, func() bool { return source.fetches() >= 2 }, time.Second, time.Millisecond)

	tr.Stop()
	tr.Stop()

	waitClosed(t, tr)
	after := source.fetches()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, source.fetches(), "no polls after Stop")
}

func TestStopBeforeStart(t *testing.T) {
	tr := New(logger.New("track-test"), &fakeSource{}, "req-1", fastOptions())
	tr.Stop()

	_, ok := <-tr.Events()
	require.False(t, ok)
}

func TestStartAfterStopIsNoOp(t *testing.T) {
	source := &fakeSource{}
	tr := New(logger.New("track-test"), source, "req-1", fastOptions())
	tr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	// the loop never launches, so nothing polls and the closed stream stays closed
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, source.fetches())
	_, ok := <-tr.Events()
	require.False(t, ok)
}
