package route

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"zoomx/internal/domain/geo"
	"zoomx/internal/general/config"
	"zoomx/internal/general/logger"
)

var (
	origin      = geo.Point{Latitude: -23.5505, Longitude: -46.6333}
	destination = geo.Point{Latitude: -23.5614, Longitude: -46.6559}
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Estimator.RoutingURL = server.URL

	return NewClient(cfg, logger.New("route-test"))
}

func TestRouteReturnsPolylineAndDistance(t *testing.T) {
	var gotPath string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"p~iF~ps|U","distance":4237.5}]}`))
	})

	route, err := client.Route(context.Background(), origin, destination)
	require.NoError(t, err)
	require.Equal(t, "p~iF~ps|U", route.Polyline)
	require.InDelta(t, 4.2375, route.DistanceKM, 1e-9)

	// OSRM wants lon,lat pairs
	require.True(t, strings.HasPrefix(gotPath, "/route/v1/driving/-46.633300,-23.550500;"), gotPath)
}

func TestRouteNoRouteFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	})

	_, err := client.Route(context.Background(), origin, destination)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestRouteEmptyRouteList(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[]}`))
	})

	_, err := client.Route(context.Background(), origin, destination)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestRouteUpstreamFailure(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Route(context.Background(), origin, destination)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
