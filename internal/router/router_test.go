package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/dbtest"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/services/api_key"
	"github.com/onegreenvn/green-insights-backend/internal/services/auth"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const (
	testSecret      = "router-test-secret"
	testOrg         = "11111111-1111-1111-1111-111111111111"
	testIntegration = "22222222-2222-2222-2222-222222222222"
)

type testServer struct {
	engine *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	metrics := monitoring.NewMetrics()
	hub := services.NewSSEHub()
	authService := auth.NewAuthService(testSecret)
	container := services.NewContainer(db, config.DefaultAnalytics(), nil, hub, metrics, services.Options{QueryTimeout: 5 * time.Second})

	token, err := authService.IssueToken(testOrg, "user-1", time.Hour)
	require.NoError(t, err)

	return &testServer{
		engine: SetupRouter(Dependencies{
			DB:            db,
			Services:      container,
			AuthService:   authService,
			APIKeyService: api_key.NewService(db),
			SSEHub:        hub,
			Metrics:       metrics,
		}),
		token: token,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Rows    int             `json:"rows"`
}

func (s *testServer) do(t *testing.T, method, path, authorization string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) bearer() string {
	return "Bearer " + s.token
}

func (s *testServer) apiKey(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/api-keys", s.bearer(), gin.H{"name": "ingest-worker"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.Key)
	return "ApiKey " + created.Key
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/playbooks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/api/v1/playbooks", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/playbooks", s.bearer(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestIngestRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)
	content := gin.H{
		"integration_id":      testIntegration,
		"external_content_id": "ext-1",
		"content_type":        "reel",
		"published_at":        time.Now().UTC().Add(-48 * time.Hour),
	}

	w, _ := s.do(t, http.MethodPost, "/api/v1/ingest/contents", "", content)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/ingest/contents", s.bearer(), content)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/ingest/contents", "ApiKey deadbeef.deadbeef", content)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestAndRankContent(t *testing.T) {
	s := newTestServer(t)
	key := s.apiKey(t)
	published := time.Now().UTC().Add(-48 * time.Hour)
	content := gin.H{
		"integration_id":      testIntegration,
		"external_content_id": "ext-1",
		"content_type":        "reel",
		"caption":             "Plan your week #planning",
		"published_at":        published,
	}

	// Untracked integrations are rejected
	w, env := s.do(t, http.MethodPost, "/api/v1/ingest/contents", key, content)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodPut, "/api/v1/analytics/tracked-integrations", s.bearer(), gin.H{"integration_ids": []string{testIntegration}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/v1/ingest/contents", key, content)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodPost, "/api/v1/ingest/metrics", key, gin.H{"metrics": []gin.H{{
		"integration_id":      testIntegration,
		"external_content_id": "ext-1",
		"date":                published.Format(utils.DateLayout),
		"reach":               1000,
		"reactions":           80,
		"comments":            10,
		"shares":              10,
	}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.Rows)

	w, env = s.do(t, http.MethodGet, "/api/v1/analytics/top-content?days=7", s.bearer(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var items []struct {
		ExternalContentID string  `json:"external_content_id"`
		TotalReach        int64   `json:"total_reach"`
		EngagementRate    float64 `json:"engagement_rate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "ext-1", items[0].ExternalContentID)
	assert.Equal(t, int64(1000), items[0].TotalReach)
	assert.InDelta(t, 10.0, items[0].EngagementRate, 1e-9)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/playbooks/00000000-0000-0000-0000-000000000000", s.bearer(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/v1/playbooks/generate", s.bearer(), gin.H{"days": 5000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/analytics/top-content?days=abc", s.bearer(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/experiments", s.bearer(), gin.H{"name": "missing fields"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/experiments/00000000-0000-0000-0000-000000000000/start", s.bearer(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertConfigDefaults(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/alerts/config", s.bearer(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var configs []struct {
		Metric    string  `json:"metric"`
		Threshold float64 `json:"threshold"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &configs))
	assert.Len(t, configs, 2)

	w, _ = s.do(t, http.MethodPut, "/api/v1/alerts/config", s.bearer(), gin.H{"metric": "likes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/playbooks", s.bearer(), nil)

	w, _ := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/api/v1/playbooks"`)
}
