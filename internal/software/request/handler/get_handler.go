package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zoomx/internal/general/jwt"
	"zoomx/internal/ports"
)

// ----- Handler: GET /requests/{request_id} -----

func (handler *RequestHTTPHandler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", errors.New("missing request_id"))
		return
	}
	ctx = handler.logger.WithRideRequestID(ctx, requestID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.GetRequest(ctxWithTimeout, requestID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /requests -----

func (handler *RequestHTTPHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	claims := jwt.RequireClaims(r)

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			handler.httpError(ctx, w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = parsed
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.ListMine(ctxWithTimeout, strings.TrimSpace(claims.Subject), limit)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	if res == nil {
		res = []ports.RequestView{}
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /requests/{request_id}/assignment -----

func (handler *RequestHTTPHandler) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", errors.New("missing request_id"))
		return
	}
	ctx = handler.logger.WithRideRequestID(ctx, requestID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.GetAssignment(ctxWithTimeout, requestID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
