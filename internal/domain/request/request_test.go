package request

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newPendingRequest(t *testing.T) *RideRequest {
	t.Helper()

	r, err := NewRideRequest(
		"REQ_20260901_120000_001",
		"requester-1",
		"Av. Paulista, 1000",
		"Rua Augusta, 500",
		4.2,
		9.30,
		ServiceRide,
		PaymentPix,
	)
	require.NoError(t, err)
	return r
}

func TestNewRideRequestStartsPending(t *testing.T) {
	r := newPendingRequest(t)

	require.Equal(t, StatusPending, r.Status)
	require.True(t, r.Open())
	require.Nil(t, r.OperatorID)
	require.Nil(t, r.RespondedAt)
	require.Nil(t, r.CancelledAt)
}

func TestNewRideRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func() (*RideRequest, error)
		wantErr error
	}{
		{
			name: "missing requester",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "  ", "a", "b", 1, 1, ServiceRide, PaymentCash)
			},
			wantErr: ErrRequesterRequired,
		},
		{
			name: "missing origin",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "u1", "", "b", 1, 1, ServiceRide, PaymentCash)
			},
			wantErr: ErrOriginRequired,
		},
		{
			name: "missing destination",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "u1", "a", " ", 1, 1, ServiceRide, PaymentCash)
			},
			wantErr: ErrDestinationRequired,
		},
		{
			name: "negative distance",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "u1", "a", "b", -1, 1, ServiceRide, PaymentCash)
			},
			wantErr: ErrNegativeDistance,
		},
		{
			name: "unknown service type",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "u1", "a", "b", 1, 1, ServiceType("TELEPORT"), PaymentCash)
			},
			wantErr: ErrInvalidServiceType,
		},
		{
			name: "unknown payment method",
			mutate: func() (*RideRequest, error) {
				return NewRideRequest("REQ_1", "u1", "a", "b", 1, 1, ServiceRide, PaymentMethod("IOU"))
			},
			wantErr: ErrInvalidPaymentMethod,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.mutate()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAcceptSetsOperatorAndTimestamps(t *testing.T) {
	r := newPendingRequest(t)

	require.NoError(t, r.Accept("op-1"))
	require.Equal(t, StatusAccepted, r.Status)
	require.NotNil(t, r.OperatorID)
	require.Equal(t, "op-1", *r.OperatorID)
	require.NotNil(t, r.RespondedAt)
	require.False(t, r.Open())
}

func TestAcceptRequiresOperator(t *testing.T) {
	r := newPendingRequest(t)
	require.ErrorIs(t, r.Accept("   "), ErrOperatorRequired)
	require.Equal(t, StatusPending, r.Status)
}

func TestRejectLeavesNoOperator(t *testing.T) {
	r := newPendingRequest(t)

	require.NoError(t, r.Reject())
	require.Equal(t, StatusRejected, r.Status)
	require.Nil(t, r.OperatorID)
	require.NotNil(t, r.RespondedAt)
}

func TestCancelRecordsReason(t *testing.T) {
	r := newPendingRequest(t)

	require.NoError(t, r.Cancel("  changed my mind  "))
	require.Equal(t, StatusCancelled, r.Status)
	require.NotNil(t, r.CancelledAt)
	require.NotNil(t, r.CancellationReason)
	require.Equal(t, "changed my mind", *r.CancellationReason)
}

func TestCancelWithoutReason(t *testing.T) {
	r := newPendingRequest(t)

	require.NoError(t, r.Cancel(""))
	require.Equal(t, StatusCancelled, r.Status)
	require.Nil(t, r.CancellationReason)
}

func TestTerminalStatesRefuseFurtherTransitions(t *testing.T) {
	accepted := newPendingRequest(t)
	require.NoError(t, accepted.Accept("op-1"))
	require.ErrorIs(t, accepted.Reject(), ErrInvalidStatusTransition)
	require.ErrorIs(t, accepted.Cancel("late"), ErrInvalidStatusTransition)
	require.ErrorIs(t, accepted.Accept("op-2"), ErrAlreadyResponded)
	require.Equal(t, "op-1", *accepted.OperatorID)

	rejected := newPendingRequest(t)
	require.NoError(t, rejected.Reject())
	require.Error(t, rejected.Accept("op-1"))
	require.ErrorIs(t, rejected.Cancel(""), ErrInvalidStatusTransition)

	cancelled := newPendingRequest(t)
	require.NoError(t, cancelled.Cancel("x"))
	require.Error(t, cancelled.Accept("op-1"))
	require.ErrorIs(t, cancelled.Reject(), ErrInvalidStatusTransition)
}

func TestStatusTransitionTable(t *testing.T) {
	for _, next := range []Status{StatusAccepted, StatusRejected, StatusCancelled} {
		require.True(t, StatusPending.CanTransitionTo(next), "PENDING -> %s", next)
	}
	require.False(t, StatusPending.CanTransitionTo(StatusPending))

	for _, terminal := range []Status{StatusAccepted, StatusRejected, StatusCancelled} {
		require.True(t, terminal.Terminal())
		for _, next := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusCancelled} {
			require.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestParseStatusNormalizes(t *testing.T) {
	status, err := ParseStatus("  accepted ")
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, status)

	_, err = ParseStatus("EXPIRED")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNewAssignmentValidation(t *testing.T) {
	a, err := NewAssignment("req-1", "op-1", " Maria ", " Onix ", " ABC1D23 ", 4.8)
	require.NoError(t, err)
	require.Equal(t, "req-1", a.RequestID)
	require.Equal(t, "Maria", a.OperatorName)
	require.Equal(t, "Onix", a.VehicleModel)
	require.Equal(t, "ABC1D23", a.VehiclePlate)

	_, err = NewAssignment("", "op-1", "", "", "", 4)
	require.ErrorIs(t, err, ErrRequestIDRequired)

	_, err = NewAssignment("req-1", "", "", "", "", 4)
	require.ErrorIs(t, err, ErrOperatorRequired)

	_, err = NewAssignment("req-1", "op-1", "", "", "", 5.5)
	require.ErrorIs(t, err, ErrInvalidRating)
}
