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
	requestsvc "zoomx/internal/software/request/service"

	"github.com/jackc/pgx/v5/pgconn"
)

// RequestHTTPHandler adapts HTTP requests to the RequestService.
type RequestHTTPHandler struct {
	svc    ports.RequestService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewRequestHTTPHandler wires an HTTP handler around the RequestService.
func NewRequestHTTPHandler(
	svc ports.RequestService,
	logger *logger.Logger,
	auth *jwt.Manager,
) *RequestHTTPHandler {
	return &RequestHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts request endpoints on the provided mux.
func (handler *RequestHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	anyRole := []user.Role{user.RoleRequester, user.RoleOperator, user.RoleAdmin}

	mux.HandleFunc("POST /requests",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleRequester)(handler.handleCreateRequest),
	)
	mux.HandleFunc("GET /requests",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleRequester)(handler.handleListMine),
	)
	mux.HandleFunc("GET /requests/{request_id}",
		jwt.AuthMiddlewareFunc(handler.auth, anyRole...)(handler.handleGetRequest),
	)
	mux.HandleFunc("DELETE /requests/{request_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleRequester)(handler.handleCancelRequest),
	)
	mux.HandleFunc("POST /requests/{request_id}/response",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleOperator)(handler.handleRespond),
	)
	mux.HandleFunc("GET /requests/{request_id}/assignment",
		jwt.AuthMiddlewareFunc(handler.auth, anyRole...)(handler.handleGetAssignment),
	)

	mux.HandleFunc("GET /requests/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

// ----- general helpers -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *RequestHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response := TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, response)
}

func (handler *RequestHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(resp{Status: "ok"})
}

func (handler *RequestHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *RequestHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps service/domain failures onto HTTP status codes.
func (handler *RequestHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
	case errors.Is(err, request.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "request not found", err)
	case errors.Is(err, requestsvc.ErrNotOwner):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, request.ErrAlreadyResponded), errors.Is(err, request.ErrInvalidStatusTransition):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

// withReqID extracts or generates a correlation ID and adds it to the context.
func (handler *RequestHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithCorrelationID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for correlation IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
