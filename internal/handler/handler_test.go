package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
	"github.com/capitalize-ai/commerce-assistant/internal/intent"
	"github.com/capitalize-ai/commerce-assistant/internal/llm"
	"github.com/capitalize-ai/commerce-assistant/internal/middleware"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/service"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

const (
	secret = "test-secret"
	tenant = "butik"
)

const products = `[
  {"name": "Afrika Etnik Baskılı Dantelli Gecelik", "color": "SİYAH", "price": 1200, "stock": 3},
  {"name": "Hamile Lohusa Pijama Takımı", "color": "PEMBE", "price": 1100, "stock": 5}
]`

type testServer struct {
	srv *httptest.Server
	reg *service.Registry
}

func newTestServer(t *testing.T, auth bool) *testServer {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, tenant), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tenant, catalog.ProductsFile), []byte(products), 0o644))

	log := logger.Nop()
	gw := llm.Disabled()
	reg := service.NewRegistry(catalog.NewFileSource(dir, log), gw, service.RegistryOptions{Logger: log})
	classifier, err := intent.New(gw, intent.Options{Logger: log})
	require.NoError(t, err)
	svc := service.NewChatService(reg, classifier, nil, service.Options{Logger: log})

	router := NewRouter(RouterConfig{
		Chat:        NewChatHandler(svc, "none", log),
		Catalog:     NewCatalogHandler(svc, log),
		Health:      NewHealthHandler(nil, reg, nil),
		Logger:      log,
		AuthEnabled: auth,
		JWTSecret:   secret,
		RateLimits:  middleware.RateLimits{Visitor: 1000, Tenant: 1000, Window: time.Minute},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, reg: reg}
}

func token(t *testing.T, tenantID string, scopes ...string) string {
	t.Helper()
	tok, err := middleware.GenerateToken(secret, "widget", tenantID, scopes, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", token(t, tenant), model.ChatRequest{SessionID: "s1", Message: "merhaba"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.CorrelationHeader))

	out := decode[model.ChatResponse](t, resp)
	assert.Equal(t, model.IntentGreeting, out.Intent)
	assert.Equal(t, "s1", out.SessionID)
}

func TestChatSessionFromHeader(t *testing.T) {
	s := newTestServer(t, true)

	body, err := json.Marshal(model.ChatRequest{Message: "merhaba"})
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.srv.URL+"/api/v1/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, tenant))
	req.Header.Set(middleware.SessionHeader, "widget-session")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "widget-session", decode[model.ChatResponse](t, resp).SessionID)
}

func TestChatRequiresAuth(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", "", model.ChatRequest{Message: "merhaba"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/chat", "not-a-token", model.ChatRequest{Message: "merhaba"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatTenantMismatch(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", token(t, tenant),
		model.ChatRequest{TenantID: "other", Message: "merhaba"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatUnknownTenant(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", token(t, "missing"), model.ChatRequest{Message: "merhaba"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatWithoutAuthUsesBodyTenant(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", "", model.ChatRequest{TenantID: tenant, Message: "merhaba"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[model.ChatResponse](t, resp)
	assert.NotEmpty(t, out.SessionID, "server issues a session id")

	resp = s.do(t, http.MethodPost, "/api/v1/chat", "", model.ChatRequest{TenantID: "../etc", Message: "merhaba"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/chat", "", map[string]string{"tenant_id": tenant, "unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t, true)
	tok := token(t, tenant)

	resp := s.do(t, http.MethodGet, "/api/v1/sessions/s1", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/chat", tok, model.ChatRequest{SessionID: "s1", Message: "merhaba"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/sessions/s1", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[map[string]any](t, resp)
	assert.Equal(t, "s1", snap["session_id"])

	resp = s.do(t, http.MethodDelete, "/api/v1/sessions/s1", tok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/v1/sessions/s1", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalogReloadRequiresScope(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/catalog/reload", token(t, tenant), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/catalog/reload", token(t, tenant, middleware.ScopeCatalogWrite), nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/catalog/reload", token(t, "missing", middleware.ScopeCatalogWrite), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsOnlyShowOwnTenant(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/v1/chat", token(t, tenant), model.ChatRequest{Message: "merhaba"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/stats", token(t, "other"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[service.Stats](t, resp).Tenants)

	resp = s.do(t, http.MethodGet, "/api/v1/stats", token(t, tenant), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[service.Stats](t, resp)
	require.Len(t, stats.Tenants, 1)
	assert.Equal(t, int64(1), stats.Tenants[0].TotalRequests)
	assert.Equal(t, "none", stats.LLMProvider)
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyWaitsForPreload(t *testing.T) {
	reg := service.NewRegistry(catalog.NewFileSource(t.TempDir(), nil), nil, service.RegistryOptions{})
	h := NewHealthHandler(nil, reg, []string{tenant})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
