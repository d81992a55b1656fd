package request

import (
	"math"
	"time"
)

// Tariff holds the per-service pricing coefficients. The control flow of the
// fare formula is shared; only the coefficients differ per service type, so
// they travel as configuration rather than as duplicated branches.
type Tariff struct {
	BaseFare     float64 // flat component, charged always
	DayPerKM     float64 // per-km rate between 06:00 and 22:00
	NightPerKM   float64 // per-km rate outside the day window
	PrepMinutes  int     // fixed preparation time added to the ETA
	MinutesPerKM float64 // ETA slope (≈ 60 / average city speed)
}

// DefaultTariffs returns the built-in coefficient table. Config may override
// individual entries.
func DefaultTariffs() map[ServiceType]Tariff {
	return map[ServiceType]Tariff{
		ServiceRide:     {BaseFare: 3.00, DayPerKM: 1.50, NightPerKM: 1.95, MinutesPerKM: 3},
		ServiceDelivery: {BaseFare: 4.00, DayPerKM: 1.70, NightPerKM: 2.10, MinutesPerKM: 3},
		// Shopping runs on a flat rate around the clock plus shop time.
		ServiceShopping: {BaseFare: 6.00, DayPerKM: 2.00, NightPerKM: 2.00, PrepMinutes: 15, MinutesPerKM: 3},
	}
}

// nightRate reports whether the night per-km rate applies at the given time.
// The day window is [06:00, 22:00) in the local time of `at`.
func nightRate(at time.Time) bool {
	h := at.Hour()
	return h < 6 || h >= 22
}

// ComputePrice returns base + (distance_km * per_km_rate), where the per-km
// rate depends on the time of day.
func (tariff Tariff) ComputePrice(distanceKM float64, at time.Time) float64 {
	if distanceKM < 0 {
		distanceKM = 0
	}

	perKM := tariff.DayPerKM
	if nightRate(at) {
		perKM = tariff.NightPerKM
	}

	return tariff.BaseFare + perKM*distanceKM
}

// EstimateETAMinutes returns ceil(distance_km * minutes_per_km) plus the
// fixed preparation time, with a floor of one minute of travel.
func (tariff Tariff) EstimateETAMinutes(distanceKM float64) int {
	if distanceKM < 0 {
		distanceKM = 0
	}

	m := int(math.Ceil(distanceKM * tariff.MinutesPerKM))
	if m < 1 {
		m = 1
	}

	return m + tariff.PrepMinutes
}
