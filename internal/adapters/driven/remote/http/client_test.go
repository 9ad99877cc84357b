package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

func testAction() domain.PendingAction {
	return domain.PendingAction{
		ID:          "a-1",
		Table:       "tickets",
		RecordID:    "t-1",
		Type:        domain.ActionUpdate,
		Payload:     json.RawMessage(`{"status":"closed"}`),
		BaseVersion: 3,
	}
}

func TestClient_SubmitAccepted(t *testing.T) {
	var gotPath string
	var gotBody submitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(submitResponse{
			Accepted:   true,
			NewVersion: 4,
			ServerData: json.RawMessage(`{"status":"closed"}`),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, domain.DefaultConfig())
	res, err := client.Submit(context.Background(), testAction())

	require.NoError(t, err)
	assert.Equal(t, int64(4), res.NewVersion)
	assert.JSONEq(t, `{"status":"closed"}`, string(res.ServerData))

	assert.Equal(t, "/v1/tables/tickets/actions", gotPath)
	assert.Equal(t, "update", gotBody.ActionType)
	assert.Equal(t, "t-1", gotBody.RecordID)
	assert.Equal(t, int64(3), gotBody.BaseVersion)
}

func TestClient_SubmitVersionConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(conflictResponse{
			ServerVersion: 7,
			ServerData:    json.RawMessage(`{"status":"escalated"}`),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, domain.DefaultConfig())
	_, err := client.Submit(context.Background(), testAction())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	var vc *domain.VersionConflictError
	require.True(t, errors.As(err, &vc))
	assert.Equal(t, int64(7), vc.ServerVersion)
	assert.JSONEq(t, `{"status":"escalated"}`, string(vc.ServerData))
}

func TestClient_SubmitServerErrorWrapsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, domain.DefaultConfig())
	_, err := client.Submit(context.Background(), testAction())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrVersionConflict)
}

func TestClient_SubmitUnreachableHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", domain.DefaultConfig())

	_, err := client.Submit(context.Background(), testAction())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_SubmitHonoursContextCancellation(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", domain.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Submit(ctx, testAction())
	require.Error(t, err)
}

func TestClient_Healthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, domain.DefaultConfig())
	assert.True(t, client.Healthy(context.Background()))
}

func TestClient_HealthyFalseOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, domain.DefaultConfig())
	assert.False(t, client.Healthy(context.Background()))
}

func TestClient_HealthyFalseWhenUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", domain.DefaultConfig())
	assert.False(t, client.Healthy(context.Background()))
}
