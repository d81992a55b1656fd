package request

import (
	"errors"
	"strings"
)

// ServiceType is a dispatch service category as stored in the `ride_requests` table.
type ServiceType string

const (
	ServiceRide     ServiceType = "RIDE"
	ServiceDelivery ServiceType = "DELIVERY"
	ServiceShopping ServiceType = "SHOPPING"
)

var ErrInvalidServiceType = errors.New("invalid service type")

// ParseServiceType normalizes (uppercases+trims) and validates a service type string.
func ParseServiceType(in string) (ServiceType, error) {
	st := ServiceType(strings.ToUpper(strings.TrimSpace(in)))
	if st.Valid() {
		return st, nil
	}
	return "", ErrInvalidServiceType
}

// Valid reports whether serviceType is one of the allowed service type constants.
func (serviceType ServiceType) Valid() bool {
	switch serviceType {
	case ServiceRide, ServiceDelivery, ServiceShopping:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ServiceType.
func (serviceType ServiceType) String() string {
	return string(serviceType)
}
