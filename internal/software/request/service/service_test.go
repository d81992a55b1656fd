package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/contracts"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// ----- in-memory collaborators -----

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRequestRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*request.RideRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{rows: map[string]*request.RideRequest{}}
}

func (repo *memRequestRepo) CreateRequest(_ context.Context, r *request.RideRequest) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.seq++
	r.ID = fmt.Sprintf("req-%d", repo.seq)
	row := *r
	repo.rows[r.ID] = &row
	return nil
}

// GetByID hands out a copy the way a row scan does, so entity mutations do
// not leak into the store before UpdateStatus runs.
func (repo *memRequestRepo) GetByID(_ context.Context, id string) (*request.RideRequest, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (repo *memRequestRepo) UpdateStatus(_ context.Context, id string, status request.Status, operatorID *string, ts time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[id]
	if !ok {
		return request.ErrNotFound
	}
	if row.Status != request.StatusPending {
		return request.ErrAlreadyResponded
	}

	row.Status = status
	row.OperatorID = operatorID
	row.RespondedAt = &ts
	row.UpdatedAt = ts
	return nil
}

func (repo *memRequestRepo) Cancel(_ context.Context, id, reason string, cancelledAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[id]
	if !ok {
		return request.ErrNotFound
	}
	if row.Status != request.StatusPending {
		return request.ErrAlreadyResponded
	}

	row.Status = request.StatusCancelled
	row.CancelledAt = &cancelledAt
	if reason != "" {
		row.CancellationReason = &reason
	}
	row.UpdatedAt = cancelledAt
	return nil
}

func (repo *memRequestRepo) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.rows[id]; !ok {
		return request.ErrNotFound
	}
	delete(repo.rows, id)
	return nil
}

func (repo *memRequestRepo) ListOpen(_ context.Context, limit int) ([]*request.RideRequest, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var out []*request.RideRequest
	for _, row := range repo.rows {
		if row.Status == request.StatusPending {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (repo *memRequestRepo) ListByRequester(_ context.Context, requesterID string, limit int) ([]*request.RideRequest, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var out []*request.RideRequest
	for _, row := range repo.rows {
		if row.RequesterID == requesterID {
			cp := *row
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAssignmentRepo struct {
	mu   sync.Mutex
	rows map[string]*request.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{rows: map[string]*request.Assignment{}}
}

func (repo *memAssignmentRepo) CreateAssignment(_ context.Context, a *request.Assignment) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	cp := *a
	repo.rows[a.RequestID] = &cp
	return nil
}

func (repo *memAssignmentRepo) GetByRequestID(_ context.Context, requestID string) (*request.Assignment, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[requestID]
	if !ok {
		return nil, request.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

type published struct {
	exchange   string
	routingKey string
	body       []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (p *fakePublisher) Publish(exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{exchange, routingKey, body})
	return nil
}

func (p *fakePublisher) last(t *testing.T) published {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.sent)
	return p.sent[len(p.sent)-1]
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// ----- harness -----

type harness struct {
	svc         ports.RequestService
	requests    *memRequestRepo
	assignments *memAssignmentRepo
	pub         *fakePublisher
}

func newHarness() *harness {
	h := &harness{
		requests:    newMemRequestRepo(),
		assignments: newMemAssignmentRepo(),
		pub:         &fakePublisher{},
	}
	h.svc = NewRequestService(logger.New("request-service-test"), fakeUOW{}, h.requests, h.assignments, h.pub)
	return h
}

func createInput() ports.CreateRequestInput {
	return ports.CreateRequestInput{
		RequesterID:   "requester-1",
		Origin:        "Av. Paulista, 1000",
		Destination:   "Rua Augusta, 500",
		DistanceKM:    4.2,
		Price:         9.30,
		ServiceType:   request.ServiceRide,
		PaymentMethod: request.PaymentPix,
	}
}

func (h *harness) mustCreate(t *testing.T) ports.CreateRequestResult {
	t.Helper()
	res, err := h.svc.CreateRequest(context.Background(), createInput())
	require.NoError(t, err)
	return res
}

// ----- tests -----

func TestCreateRequestPersistsAndPublishes(t *testing.T) {
	h := newHarness()

	res := h.mustCreate(t)
	require.NotEmpty(t, res.RequestID)
	require.NotEmpty(t, res.RequestNumber)
	require.Equal(t, "PENDING", res.Status)

	stored, err := h.requests.GetByID(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.Equal(t, request.StatusPending, stored.Status)

	last := h.pub.last(t)
	require.Equal(t, contracts.ExchangeRequestTopic, last.exchange)
	require.Equal(t, contracts.RouteRequestCreated, last.routingKey)

	var msg contracts.RequestCreatedMessage
	require.NoError(t, json.Unmarshal(last.body, &msg))
	require.Equal(t, res.RequestID, msg.Request.RequestID)
	require.Equal(t, "PENDING", msg.Request.Status)
	require.NotEmpty(t, msg.Envelope.CorrelationID)
}

func TestCreateRequestRejectsInvalidInput(t *testing.T) {
	h := newHarness()

	in := createInput()
	in.Origin = "   "
	_, err := h.svc.CreateRequest(context.Background(), in)
	require.ErrorIs(t, err, request.ErrOriginRequired)
	require.Zero(t, h.pub.count())
}

func TestCreateRequestSurvivesPublishFailure(t *testing.T) {
	h := newHarness()
	h.pub.fail = errors.New("broker down")

	res, err := h.svc.CreateRequest(context.Background(), createInput())
	require.NoError(t, err)

	// the row is committed even though the event never left
	stored, err := h.requests.GetByID(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.Equal(t, request.StatusPending, stored.Status)
}

func TestRespondAcceptWritesAssignment(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	res, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID:    created.RequestID,
		OperatorID:   "op-1",
		Status:       request.StatusAccepted,
		OperatorName: "Maria",
		VehicleModel: "Onix",
		VehiclePlate: "ABC1D23",
		Rating:       4.8,
	})
	require.NoError(t, err)
	require.Equal(t, "ACCEPTED", res.Status)

	stored, err := h.requests.GetByID(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, request.StatusAccepted, stored.Status)
	require.NotNil(t, stored.OperatorID)
	require.Equal(t, "op-1", *stored.OperatorID)

	a, err := h.assignments.GetByRequestID(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, "op-1", a.OperatorID)
	require.Equal(t, "Maria", a.OperatorName)

	last := h.pub.last(t)
	require.Equal(t, contracts.RouteRequestStatusPrefix+"accepted", last.routingKey)

	var msg contracts.RequestStatusMessage
	require.NoError(t, json.Unmarshal(last.body, &msg))
	require.Equal(t, created.RequestID, msg.RequestID)
	require.NotNil(t, msg.Operator)
	require.Equal(t, "op-1", msg.Operator.OperatorID)
	require.NotNil(t, msg.Request)
	require.Equal(t, "ACCEPTED", msg.Request.Status)
}

func TestRespondRejectLeavesNoAssignment(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	res, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID:  created.RequestID,
		OperatorID: "op-1",
		Status:     request.StatusRejected,
	})
	require.NoError(t, err)
	require.Equal(t, "REJECTED", res.Status)

	_, err = h.assignments.GetByRequestID(context.Background(), created.RequestID)
	require.ErrorIs(t, err, request.ErrNotFound)

	last := h.pub.last(t)
	require.Equal(t, contracts.RouteRequestStatusPrefix+"rejected", last.routingKey)
}

func TestRespondRefusesSecondResponse(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	_, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: created.RequestID, OperatorID: "op-1", Status: request.StatusAccepted,
	})
	require.NoError(t, err)

	_, err = h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: created.RequestID, OperatorID: "op-2", Status: request.StatusAccepted,
	})
	require.ErrorIs(t, err, request.ErrAlreadyResponded)

	// first operator keeps the win
	stored, err := h.requests.GetByID(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, "op-1", *stored.OperatorID)
}

func TestRespondRefusesUnsupportedStatus(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	_, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: created.RequestID, OperatorID: "op-1", Status: request.StatusCancelled,
	})
	require.ErrorIs(t, err, ErrUnsupportedResponse)
}

func TestRespondUnknownRequest(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: "nope", OperatorID: "op-1", Status: request.StatusAccepted,
	})
	require.ErrorIs(t, err, request.ErrNotFound)
}

func TestCancelRequestByOwner(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	res, err := h.svc.CancelRequest(context.Background(), created.RequestID, "requester-1", "plans changed")
	require.NoError(t, err)
	require.Equal(t, "CANCELLED", res.Status)

	stored, err := h.requests.GetByID(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, request.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	require.Equal(t, "plans changed", *stored.CancellationReason)

	last := h.pub.last(t)
	require.Equal(t, contracts.RouteRequestStatusPrefix+"cancelled", last.routingKey)
}

func TestCancelRequestRefusesNonOwner(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	_, err := h.svc.CancelRequest(context.Background(), created.RequestID, "intruder", "")
	require.ErrorIs(t, err, ErrNotOwner)

	stored, err := h.requests.GetByID(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, request.StatusPending, stored.Status)
}

func TestCancelAfterAcceptRefused(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	_, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: created.RequestID, OperatorID: "op-1", Status: request.StatusAccepted,
	})
	require.NoError(t, err)

	_, err = h.svc.CancelRequest(context.Background(), created.RequestID, "requester-1", "too late")
	require.ErrorIs(t, err, request.ErrInvalidStatusTransition)
}

func TestRemoveRequest(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	require.ErrorIs(t, h.svc.RemoveRequest(context.Background(), created.RequestID, "intruder"), ErrNotOwner)

	require.NoError(t, h.svc.RemoveRequest(context.Background(), created.RequestID, "requester-1"))
	_, err := h.requests.GetByID(context.Background(), created.RequestID)
	require.ErrorIs(t, err, request.ErrNotFound)

	last := h.pub.last(t)
	require.Equal(t, contracts.RouteRequestRemoved, last.routingKey)

	var msg contracts.RequestRemovedMessage
	require.NoError(t, json.Unmarshal(last.body, &msg))
	require.Equal(t, created.RequestID, msg.RequestID)
}

func TestListOpenSkipsRespondedRequests(t *testing.T) {
	h := newHarness()

	first := h.mustCreate(t)
	second := h.mustCreate(t)
	third := h.mustCreate(t)

	_, err := h.svc.Respond(context.Background(), ports.RespondInput{
		RequestID: second.RequestID, OperatorID: "op-1", Status: request.StatusRejected,
	})
	require.NoError(t, err)

	open, err := h.svc.ListOpen(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, open, 2)

	ids := []string{open[0].RequestID, open[1].RequestID}
	require.Contains(t, ids, first.RequestID)
	require.Contains(t, ids, third.RequestID)
}

func TestListMineReturnsOnlyOwnRequests(t *testing.T) {
	h := newHarness()

	mineA := h.mustCreate(t)
	mineB := h.mustCreate(t)

	other := createInput()
	other.RequesterID = "requester-2"
	_, err := h.svc.CreateRequest(context.Background(), other)
	require.NoError(t, err)

	mine, err := h.svc.ListMine(context.Background(), "requester-1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	ids := []string{mine[0].RequestID, mine[1].RequestID}
	require.Contains(t, ids, mineA.RequestID)
	require.Contains(t, ids, mineB.RequestID)

	none, err := h.svc.ListMine(context.Background(), "requester-3", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGetAssignmentBeforeAcceptance(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	_, err := h.svc.GetAssignment(context.Background(), created.RequestID)
	require.ErrorIs(t, err, request.ErrNotFound)
}

func TestGetRequestView(t *testing.T) {
	h := newHarness()
	created := h.mustCreate(t)

	view, err := h.svc.GetRequest(context.Background(), created.RequestID)
	require.NoError(t, err)
	require.Equal(t, created.RequestID, view.RequestID)
	require.Equal(t, "PENDING", view.Status)
	require.Equal(t, "RIDE", view.ServiceType)
	require.Empty(t, view.RespondedAt)
}
