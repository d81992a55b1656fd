package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/general/jwt"
	"zoomx/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type createRequestBody struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DistanceKM    float64 `json:"distance_km"`
	Price         float64 `json:"price"`
	ServiceType   string  `json:"service_type"`   // RIDE | DELIVERY | SHOPPING
	PaymentMethod string  `json:"payment_method"` // CASH | CREDIT_CARD | DEBIT_CARD | PIX
}

// ----- Handler: POST /requests -----

func (handler *RequestHTTPHandler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	// generate a context with correlation ID
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit body size
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	// decode strictly
	var req createRequestBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	// obtain the JWT claims; the middleware already verified the role
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// parse the service type
	st, err := request.ParseServiceType(req.ServiceType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "service_type must be one of: RIDE, DELIVERY, SHOPPING", err)
		return
	}

	// parse the payment method
	pm, err := request.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "payment_method must be one of: CASH, CREDIT_CARD, DEBIT_CARD, PIX", err)
		return
	}

	// map to service DTO defined in ports
	in := ports.CreateRequestInput{
		RequesterID:   strings.TrimSpace(claims.Subject),
		Origin:        strings.TrimSpace(req.Origin),
		Destination:   strings.TrimSpace(req.Destination),
		DistanceKM:    req.DistanceKM,
		Price:         req.Price,
		ServiceType:   st,
		PaymentMethod: pm,
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateRequest(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	ctxWithTimeout = handler.logger.WithRideRequestID(ctxWithTimeout, res.RequestID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}
