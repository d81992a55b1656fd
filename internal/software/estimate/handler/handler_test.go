package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zoomx/internal/domain/user"
	"zoomx/internal/general/jwt"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
	estimatesvc "zoomx/internal/software/estimate/service"
)

type fakeEstimator struct {
	res ports.EstimateResult
	err error
	in  []ports.EstimateInput
}

func (e *fakeEstimator) Estimate(_ context.Context, in ports.EstimateInput) (ports.EstimateResult, error) {
	e.in = append(e.in, in)
	if e.err != nil {
		return ports.EstimateResult{}, e.err
	}
	return e.res, nil
}

type fixture struct {
	est    *fakeEstimator
	auth   *jwt.Manager
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	est := &fakeEstimator{res: ports.EstimateResult{Polyline: "abc", DistanceKM: 10, Price: 18, ETAMinutes: 30}}
	auth := jwt.NewManager("estimate-test-secret", time.Hour)

	mux := http.NewServeMux()
	NewEstimateHTTPHandler(est, logger.New("estimate-service-test"), auth).RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &fixture{est: est, auth: auth, server: server}
}

func (f *fixture) post(t *testing.T, role user.Role, body any) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/estimates", bytes.NewBuffer(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if role != "" {
		signed, _, err := f.auth.IssueUserToken("user-1", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	res, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func validBody() map[string]any {
	return map[string]any{
		"origin":       "Av. Paulista, 1000",
		"destination":  "Rua Augusta, 500",
		"service_type": "RIDE",
	}
}

func TestEstimateEndpoint(t *testing.T) {
	f := newFixture(t)

	res := f.post(t, user.RoleRequester, validBody())
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out ports.EstimateResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Equal(t, "abc", out.Polyline)
	require.InDelta(t, 18.0, out.Price, 1e-9)

	require.Len(t, f.est.in, 1)
	require.Equal(t, "Av. Paulista, 1000", f.est.in[0].OriginAddress)
}

func TestEstimateEndpointOpenToAllRoles(t *testing.T) {
	f := newFixture(t)

	for _, role := range []user.Role{user.RoleRequester, user.RoleOperator, user.RoleAdmin} {
		res := f.post(t, role, validBody())
		require.Equal(t, http.StatusOK, res.StatusCode, "role %s", role)
	}
}

func TestEstimateEndpointRequiresToken(t *testing.T) {
	f := newFixture(t)

	res := f.post(t, "", validBody())
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Empty(t, f.est.in)
}

func TestEstimateEndpointRejectsUnknownServiceType(t *testing.T) {
	f := newFixture(t)

	body := validBody()
	body["service_type"] = "TELEPORT"

	res := f.post(t, user.RoleRequester, body)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Empty(t, f.est.in)
}

func TestEstimateEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"empty address", estimatesvc.ErrEmptyAddress, http.StatusBadRequest},
		{"too close", estimatesvc.ErrTooClose, http.StatusUnprocessableEntity},
		{"upstream failure", errors.New("osrm 503"), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.est.err = tc.err

			res := f.post(t, user.RoleRequester, validBody())
			require.Equal(t, tc.code, res.StatusCode)
		})
	}
}
