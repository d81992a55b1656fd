package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"zoomx/internal/general/config"
	"zoomx/internal/general/logger"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Estimator.GeocodingURL = server.URL

	return NewClient(cfg, logger.New("geocode-test"))
}

func TestGeocodeResolvesAddress(t *testing.T) {
	var gotQuery string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		require.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[{"lat":"-23.5505","lon":"-46.6333"}]`))
	})

	point, err := client.Geocode(context.Background(), "Av. Paulista, 1000")
	require.NoError(t, err)
	require.Equal(t, "Av. Paulista, 1000", gotQuery)
	require.InDelta(t, -23.5505, point.Latitude, 1e-9)
	require.InDelta(t, -46.6333, point.Longitude, 1e-9)
}

func TestGeocodeNoCandidates(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Geocode(context.Background(), "Nowhere Street, 0")
	require.ErrorIs(t, err, ErrAddressNotFound)
}

func TestGeocodeUpstreamFailure(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Geocode(context.Background(), "Av. Paulista, 1000")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestGeocodeBadCoordinatePayload(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"not-a-number","lon":"-46.6333"}]`))
	})

	_, err := client.Geocode(context.Background(), "Av. Paulista, 1000")
	require.Error(t, err)
}

func TestGeocodeOutOfRangeCoordinates(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"120.0","lon":"-46.6333"}]`))
	})

	_, err := client.Geocode(context.Background(), "Av. Paulista, 1000")
	require.Error(t, err)
}
