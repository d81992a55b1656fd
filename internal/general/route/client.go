package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zoomx/internal/domain/geo"
	"zoomx/internal/general/config"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// ErrNoRoute is returned when the routing engine finds no path between points.
var ErrNoRoute = errors.New("route: no route between points")

// Client talks to an OSRM-compatible routing endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient constructs a routing client from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.Estimator.RoutingURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  log,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"` // encoded polyline
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// Route asks the engine for a driving route between two resolved points.
// OSRM wants lon,lat order in the path.
func (c *Client) Route(ctx context.Context, origin, destination geo.Point) (ports.Route, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full",
		c.baseURL,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.Route{}, fmt.Errorf("route: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Route{}, fmt.Errorf("route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.Route{}, fmt.Errorf("route: upstream returned %d", resp.StatusCode)
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.Route{}, fmt.Errorf("route: decode response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return ports.Route{}, ErrNoRoute
	}

	best := out.Routes[0]
	c.logger.Debug(ctx, "route_computed", "Routing engine returned a route", map[string]any{
		"distance_m": best.Distance,
	})

	return ports.Route{
		Polyline:   best.Geometry,
		DistanceKM: best.Distance / 1000.0,
	}, nil
}
