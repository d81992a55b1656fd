package request

import (
	"errors"
	"strings"
)

// PaymentMethod is a payment method as stored in the `ride_requests` table.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentPix        PaymentMethod = "PIX"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// ParsePaymentMethod normalizes (uppercases+trims) and validates a payment method string.
func ParsePaymentMethod(in string) (PaymentMethod, error) {
	pm := PaymentMethod(strings.ToUpper(strings.TrimSpace(in)))
	if pm.Valid() {
		return pm, nil
	}
	return "", ErrInvalidPaymentMethod
}

// Valid reports whether paymentMethod is one of the allowed payment method constants.
func (paymentMethod PaymentMethod) Valid() bool {
	switch paymentMethod {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPix:
		return true
	default:
		return false
	}
}

// String returns the string representation of the PaymentMethod.
func (paymentMethod PaymentMethod) String() string {
	return string(paymentMethod)
}
