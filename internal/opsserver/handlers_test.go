package opsserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

type stubRouter struct {
	resp domain.AgentResponse
}

func (s stubRouter) Route(ctx domain.Context, message, userID, sessionID string) domain.AgentResponse {
	return s.resp
}

func newTestServer() *Server {
	return &Server{
		Logger:      slog.Default(),
		Router:      stubRouter{resp: domain.AgentResponse{Text: "szia", Confidence: 0.9, HandlerKind: domain.HandlerGeneral}},
		CORSOrigins: []string{"*"},
	}
}

func TestChatHandler_ValidRequestReturnsRouterResponse(t *testing.T) {
	srv := newTestServer()
	router := NewRouter(srv)

	body, _ := json.Marshal(map[string]string{"message": "szia", "user_id": "u1", "session_id": "s1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.AgentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "szia", resp.Text)
}

func TestChatHandler_MissingFieldsRejected(t *testing.T) {
	srv := newTestServer()
	router := NewRouter(srv)

	body, _ := json.Marshal(map[string]string{"message": ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzHandler_AlwaysOK(t *testing.T) {
	srv := newTestServer()
	router := NewRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzHandler_FailingCheckReturns503(t *testing.T) {
	srv := newTestServer()
	srv.CacheCheck = func(ctx domain.Context) error { return require.AnError }
	router := NewRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
