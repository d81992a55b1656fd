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

type respondRequestBody struct {
	Status       string  `json:"status"` // ACCEPTED | REJECTED
	OperatorName string  `json:"operator_name"`
	VehicleModel string  `json:"vehicle_model"`
	VehiclePlate string  `json:"vehicle_plate"`
	Rating       float64 `json:"rating"`
}

// ----- Handler: POST /requests/{request_id}/response -----

func (handler *RequestHTTPHandler) handleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit the body size
	r.Body = http.MaxBytesReader(w, r.Body, 256<<10) // 256 KiB
	defer r.Body.Close()

	// fetch and check the request id
	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", errors.New("missing request_id"))
		return
	}
	ctx = handler.logger.WithRideRequestID(ctx, requestID)

	// decode strictly
	var req respondRequestBody
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

	// the operator identity comes from the token, never the body
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	status, err := request.ParseStatus(req.Status)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "status must be ACCEPTED or REJECTED", err)
		return
	}

	in := ports.RespondInput{
		RequestID:    requestID,
		OperatorID:   strings.TrimSpace(claims.Subject),
		Status:       status,
		OperatorName: strings.TrimSpace(req.OperatorName),
		VehicleModel: strings.TrimSpace(req.VehicleModel),
		VehiclePlate: strings.TrimSpace(req.VehiclePlate),
		Rating:       req.Rating,
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.Respond(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
