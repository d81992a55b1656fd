package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"zoomx/internal/general/jwt"
)

// ----- Handler: DELETE /requests/{request_id} -----

func (handler *RequestHTTPHandler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// fetch and check the request id
	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", errors.New("missing request_id"))
		return
	}
	ctx = handler.logger.WithRideRequestID(ctx, requestID)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// optional reason via query, DELETE carries no body
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CancelRequest(ctxWithTimeout, requestID, strings.TrimSpace(claims.Subject), reason)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
