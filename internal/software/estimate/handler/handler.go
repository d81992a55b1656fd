package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"zoomx/internal/domain/request"
	"zoomx/internal/domain/user"
	"zoomx/internal/general/jwt"
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
	estimatesvc "zoomx/internal/software/estimate/service"
)

// EstimateHTTPHandler adapts HTTP requests to the EstimateService.
type EstimateHTTPHandler struct {
	svc    ports.EstimateService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewEstimateHTTPHandler wires an HTTP handler around the EstimateService.
func NewEstimateHTTPHandler(svc ports.EstimateService, logger *logger.Logger, auth *jwt.Manager) *EstimateHTTPHandler {
	return &EstimateHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts the estimate endpoint on the provided mux.
func (handler *EstimateHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /estimates",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleRequester, user.RoleOperator, user.RoleAdmin)(handler.handleEstimate),
	)
}

// --- Request DTO (HTTP boundary) ---

type estimateRequestBody struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	ServiceType string `json:"service_type"` // RIDE | DELIVERY | SHOPPING
}

// ----- Handler: POST /estimates -----

func (handler *EstimateHTTPHandler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit the body size
	r.Body = http.MaxBytesReader(w, r.Body, 256<<10) // 256 KiB
	defer r.Body.Close()

	// decode strictly
	var req estimateRequestBody
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

	st, err := request.ParseServiceType(req.ServiceType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "service_type must be one of: RIDE, DELIVERY, SHOPPING", err)
		return
	}

	in := ports.EstimateInput{
		OriginAddress:      req.Origin,
		DestinationAddress: req.Destination,
		ServiceType:        st,
	}

	// estimates fan out to two upstreams, give them a little more room
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res, err := handler.svc.Estimate(ctxWithTimeout, in)
	if err != nil {
		switch {
		case errors.Is(err, estimatesvc.ErrEmptyAddress), errors.Is(err, estimatesvc.ErrUnknownServiceType):
			handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, estimatesvc.ErrTooClose):
			handler.httpError(ctxWithTimeout, w, http.StatusUnprocessableEntity, err.Error(), err)
		default:
			handler.httpError(ctxWithTimeout, w, http.StatusBadGateway, err.Error(), err)
		}
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- general helpers -----

func (handler *EstimateHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func (handler *EstimateHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

func (handler *EstimateHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		var b [12]byte
		_, _ = rand.Read(b[:])
		reqID = hex.EncodeToString(b[:])
	}
	return handler.logger.WithCorrelationID(ctx, reqID)
}
