// Package http implements the RemoteService port over HTTP/JSON.
//
// The engine issues one request per pending action; there is no
// batching. Requests are throttled with a token bucket so a large
// backlog drained after a long offline stretch does not hammer the
// backend.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.RemoteService = (*Client)(nil)

// Client talks to the hosted record store.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a remote client for the given base URL. The
// client's own timeout is left open; per-action deadlines come from
// the caller's context.
func NewClient(baseURL string, cfg domain.Config) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// submitRequest is the wire form of one action.
type submitRequest struct {
	ActionType  string          `json:"action_type"`
	RecordID    string          `json:"record_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	BaseVersion int64           `json:"base_version"`
}

// submitResponse is the wire form of an accepted action.
type submitResponse struct {
	Accepted   bool            `json:"accepted"`
	NewVersion int64           `json:"new_version"`
	ServerData json.RawMessage `json:"server_data,omitempty"`
}

// conflictResponse is the wire form of a version mismatch.
type conflictResponse struct {
	ServerVersion int64           `json:"server_version"`
	ServerData    json.RawMessage `json:"server_data,omitempty"`
}

// Submit sends one action. Version mismatches come back as
// *domain.VersionConflictError; anything else non-2xx wraps
// domain.ErrTransport.
func (c *Client) Submit(ctx context.Context, action domain.PendingAction) (*driven.SubmitResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	body, err := json.Marshal(submitRequest{
		ActionType:  action.Type.String(),
		RecordID:    action.RecordID,
		Payload:     action.Payload,
		BaseVersion: action.BaseVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding action: %w", err)
	}

	url := fmt.Sprintf("%s/v1/tables/%s/actions", c.baseURL, action.Table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrTransport, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out submitResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrTransport, err)
		}
		return &driven.SubmitResult{
			NewVersion: out.NewVersion,
			ServerData: out.ServerData,
		}, nil

	case http.StatusConflict:
		var out conflictResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("%w: decoding conflict: %v", domain.ErrTransport, err)
		}
		return nil, &domain.VersionConflictError{
			ServerVersion: out.ServerVersion,
			ServerData:    out.ServerData,
		}

	default:
		return nil, fmt.Errorf("%w: server returned %d", domain.ErrTransport, resp.StatusCode)
	}
}

// Healthy probes the service root with a short deadline. Used by the
// connectivity monitor.
func (c *Client) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, c.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
