package track

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"zoomx/internal/ports"
)

// ErrRequestGone is returned when the backend no longer knows the request.
var ErrRequestGone = errors.New("track: request not found")

// RestSource is the tracker's HTTP client against the request service.
type RestSource struct {
	baseURL string
	token   string // bearer token, sent on every call
	http    *http.Client
}

// NewRestSource builds a StatusSource over the request service's REST API.
func NewRestSource(baseURL, token string) *RestSource {
	return &RestSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ ports.StatusSource = (*RestSource)(nil)

// FetchStatus returns the canonical status of the request.
func (s *RestSource) FetchStatus(ctx context.Context, requestID string) (string, error) {
	var view struct {
		Status string `json:"status"`
	}
	if err := s.get(ctx, "/requests/"+requestID, &view); err != nil {
		return "", err
	}
	return view.Status, nil
}

// FetchAssignment returns the operator assignment of an accepted request.
func (s *RestSource) FetchAssignment(ctx context.Context, requestID string) (ports.AssignmentView, error) {
	var view ports.AssignmentView
	if err := s.get(ctx, "/requests/"+requestID+"/assignment", &view); err != nil {
		return ports.AssignmentView{}, err
	}
	return view, nil
}

// CancelRequest asks the backend to cancel the request.
func (s *RestSource) CancelRequest(ctx context.Context, requestID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/requests/"+requestID, nil)
	if err != nil {
		return fmt.Errorf("track: build request: %w", err)
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	defer resp.Body.Close()

	return s.checkStatus(resp)
}

// ----- internals -----

func (s *RestSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("track: build request: %w", err)
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("track: decode response: %w", err)
	}
	return nil
}

func (s *RestSource) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func (s *RestSource) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrRequestGone
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("track: backend returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("track: backend returned %d", resp.StatusCode)
}
