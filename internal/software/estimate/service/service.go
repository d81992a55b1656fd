package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zoomx/internal/domain/geo"
	"zoomx/internal/domain/request"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

var (
	// ErrEmptyAddress is returned before any upstream call is made.
	ErrEmptyAddress = errors.New("origin and destination addresses are required")
	// ErrTooClose is returned when the resolved points are closer than the
	// minimum route separation; no route call is made.
	ErrTooClose = errors.New("origin and destination are too close together")
	// ErrUnknownServiceType is returned when no tariff exists for the type.
	ErrUnknownServiceType = errors.New("unknown service type")
)

// estimateService computes fare/route estimates through external
// geocoding and routing collaborators.
type estimateService struct {
	logger   *logger.Logger
	geocoder ports.Geocoder
	router   ports.Router
	tariffs  map[request.ServiceType]request.Tariff
}

// NewEstimateService creates a new EstimateService. A nil tariff table falls
// back to the built-in coefficients.
func NewEstimateService(
	logger *logger.Logger,
	geocoder ports.Geocoder,
	router ports.Router,
	tariffs map[request.ServiceType]request.Tariff,
) ports.EstimateService {
	if tariffs == nil {
		tariffs = request.DefaultTariffs()
	}
	return &estimateService{
		logger:   logger,
		geocoder: geocoder,
		router:   router,
		tariffs:  tariffs,
	}
}

// Estimate resolves both addresses, routes between them and prices the
// result. Upstream failures surface to the caller unchanged; there is no
// retry at this layer.
func (service *estimateService) Estimate(ctx context.Context, in ports.EstimateInput) (ports.EstimateResult, error) {
	origin := strings.TrimSpace(in.OriginAddress)
	destination := strings.TrimSpace(in.DestinationAddress)
	if origin == "" || destination == "" {
		return ports.EstimateResult{}, ErrEmptyAddress
	}

	tariff, ok := service.tariffs[in.ServiceType]
	if !ok {
		return ports.EstimateResult{}, ErrUnknownServiceType
	}

	at := in.At
	if at.IsZero() {
		at = time.Now()
	}

	originPoint, err := service.geocoder.Geocode(ctx, origin)
	if err != nil {
		return ports.EstimateResult{}, fmt.Errorf("geocode origin: %w", err)
	}
	destinationPoint, err := service.geocoder.Geocode(ctx, destination)
	if err != nil {
		return ports.EstimateResult{}, fmt.Errorf("geocode destination: %w", err)
	}

	if geo.TooClose(originPoint, destinationPoint) {
		return ports.EstimateResult{}, ErrTooClose
	}

	route, err := service.router.Route(ctx, originPoint, destinationPoint)
	if err != nil {
		return ports.EstimateResult{}, fmt.Errorf("route: %w", err)
	}

	result := ports.EstimateResult{
		Polyline:   route.Polyline,
		DistanceKM: route.DistanceKM,
		Price:      tariff.ComputePrice(route.DistanceKM, at),
		ETAMinutes: tariff.EstimateETAMinutes(route.DistanceKM),
	}

	service.logger.Info(ctx, "estimate_computed", "Computed fare/route estimate", map[string]any{
		"service_type": in.ServiceType.String(),
		"distance_km":  result.DistanceKM,
		"price":        result.Price,
		"eta_minutes":  result.ETAMinutes,
	})

	return result, nil
}
