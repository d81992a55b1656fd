package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"zoomx/internal/domain/geo"
	"zoomx/internal/general/config"
	"zoomx/internal/general/logger"
)

// ErrAddressNotFound is returned when the geocoder has no result for an address.
var ErrAddressNotFound = errors.New("geocode: address not found")

// Client talks to a Nominatim-compatible geocoding endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient constructs a geocoding client from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.Estimator.GeocodingURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  log,
	}
}

// nominatim returns lat/lon as strings
type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to a point. A response with no candidates
// maps to ErrAddressNotFound; everything else is a transport error.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Point, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("geocode: upstream returned %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Point{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return geo.Point{}, ErrAddressNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: parse lon: %w", err)
	}

	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: %w", err)
	}

	c.logger.Debug(ctx, "address_geocoded", "Resolved address to coordinates", map[string]any{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
	})

	return point, nil
}
