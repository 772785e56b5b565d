package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"noxchatAPI/handlers"
	"noxchatAPI/internal/auth"
	"noxchatAPI/internal/search"
	"noxchatAPI/internal/testutil"
	"noxchatAPI/middleware"
	"noxchatAPI/services"
)

type pinger struct {
	mu  sync.Mutex
	err error
}

func (p *pinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pinger) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type testAPI struct {
	server  *httptest.Server
	repo    *testutil.MemStore
	backend *testutil.SearchBackend
	db      *pinger
}

func newTestAPI(t *testing.T) *testAPI {
	logger := zaptest.NewLogger(t)
	log := logger.Sugar()

	repo := testutil.NewMemStore()
	backend := testutil.NewSearchBackend()
	index := search.NewAdapter(backend, search.Options{Timeout: time.Second}, log)

	users := services.NewUserService(repo, index, auth.BcryptHasher{Cost: bcrypt.MinCost}, log)
	friends := services.NewFriendshipService(repo, log)
	searchSvc := services.NewSearchService(repo, repo, index, log)
	tokens := auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	db := &pinger{}

	router := newRouter(routeHandlers{
		auth:       handlers.NewAuthHandler(users, tokens, log),
		users:      handlers.NewUserHandler(users, friends, searchSvc, 20, log),
		friendship: handlers.NewFriendshipHandler(users, friends, searchSvc, 20, log),
		health:     handlers.NewHealthHandler(db, nil),
		metrics: middleware.BasicAuthMiddleware("prom", "secret")(
			promhttp.HandlerFor(newMetricsRegistry(), promhttp.HandlerOpts{}),
		),
	}, tokens, users, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testAPI{server: server, repo: repo, backend: backend, db: db}
}

func (api *testAPI) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, api.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (api *testAPI) register(t *testing.T, username string) string {
	status, body := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "password123",
		"password_confirm": "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func pageUsernames(body map[string]any) []string {
	names := []string{}
	users, _ := body["users"].([]any)
	for _, u := range users {
		names = append(names, u.(map[string]any)["username"].(string))
	}
	return names
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"username": "alice", "password": "password123"}, http.StatusOK},
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "zed", "password": "password123"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if status == http.StatusOK {
				assert.NotEmpty(t, body["token"])
			}
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"bad identifier", map[string]string{"username": "al ice", "email": "a@example.com", "password": "password123", "password_confirm": "password123"}, http.StatusBadRequest},
		{"password mismatch", map[string]string{"username": "alicia", "email": "b@example.com", "password": "password123", "password_confirm": "password124"}, http.StatusBadRequest},
		{"duplicate username", map[string]string{"username": "alice", "email": "c@example.com", "password": "password123", "password_confirm": "password123"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := api.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, http.MethodGet, "/api/v1/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestFriendshipFlow(t *testing.T) {
	// Setup
	api := newTestAPI(t)
	alice := api.register(t, "alice")
	bob := api.register(t, "bob")

	// Execute & Assert
	status, body := api.do(t, http.MethodGet, "/api/v1/users/bob_2", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "none", body["state"])
	assert.NotContains(t, body["user"], "email")

	status, body = api.do(t, http.MethodPost, "/api/v1/friends/bob_2/request", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sent", body["outcome"])
	assert.Equal(t, "request_sent", body["state"])

	status, body = api.do(t, http.MethodGet, "/api/v1/friends?view=incoming", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"alice"}, pageUsernames(body))
	assert.Equal(t, "incoming", body["view"])

	status, body = api.do(t, http.MethodPost, "/api/v1/friends/alice_1/request", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", body["outcome"])
	assert.Equal(t, "friends", body["state"])

	status, body = api.do(t, http.MethodGet, "/api/v1/friends?q=bo", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"bob"}, pageUsernames(body))
	assert.Equal(t, "index", body["source"])
	assert.Equal(t, false, body["has_more"])

	status, body = api.do(t, http.MethodGet, "/api/v1/me", alice, nil)
	require.Equal(t, http.StatusOK, status)
	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["friends"])
	assert.Equal(t, float64(0), counts["incoming_requests"])

	status, body = api.do(t, http.MethodDelete, "/api/v1/friends/bob_2", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "none", body["state"])

	status, body = api.do(t, http.MethodGet, "/api/v1/friends", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, pageUsernames(body))
}

func TestFriendshipErrors(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice")

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"self request", http.MethodPost, "/api/v1/friends/alice_1/request", http.StatusBadRequest, "SELF_REFERENCE"},
		{"self remove", http.MethodDelete, "/api/v1/friends/alice_1", http.StatusBadRequest, "SELF_REFERENCE"},
		{"unknown user", http.MethodPost, "/api/v1/friends/ghost/request", http.StatusNotFound, "NOT_FOUND"},
		{"unknown view", http.MethodGet, "/api/v1/friends?view=blocked", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad page", http.MethodGet, "/api/v1/friends?page=two", http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, tt.method, tt.path, alice, nil)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, errorCode(body))
		})
	}
}

func TestSearchUsers(t *testing.T) {
	// Setup
	api := newTestAPI(t)
	alice := api.register(t, "alice")
	api.register(t, "carol")
	api.register(t, "caroline")

	// Execute
	status, body := api.do(t, http.MethodGet, "/api/v1/users/search?q=carol&page_size=1", alice, nil)

	// Assert
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, pageUsernames(body), 1)
	assert.Equal(t, true, body["has_more"])
	assert.Equal(t, "index", body["source"])

	api.backend.Break(errors.New("index down"))
	status, body = api.do(t, http.MethodGet, "/api/v1/users/search?q=carol", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"carol", "caroline"}, pageUsernames(body))
	assert.Equal(t, "database", body["source"])

	status, _ = api.do(t, http.MethodGet, "/api/v1/users/search?q=", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateProfile(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice")
	api.register(t, "bob")

	status, body := api.do(t, http.MethodPut, "/api/v1/me/profile", alice, map[string]string{
		"username":  "alice",
		"bio":       "hello",
		"public_id": "bob_2",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = api.do(t, http.MethodPut, "/api/v1/me/profile", alice, map[string]string{
		"username":  "alice",
		"bio":       "hello",
		"public_id": "Alice_Night",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice_night", body["profile"].(map[string]any)["public_id"])

	status, _ = api.do(t, http.MethodGet, "/api/v1/users/alice_night", alice, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeleteAccount(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice")
	bob := api.register(t, "bob")

	status, _ := api.do(t, http.MethodDelete, "/api/v1/me", bob, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(t, http.MethodGet, "/api/v1/users/bob_2", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 1, api.backend.Len())
}

func TestLastSeenIsTouched(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice")

	status, _ := api.do(t, http.MethodGet, "/api/v1/me", alice, nil)
	require.Equal(t, http.StatusOK, status)

	u, err := api.repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, u.Profile.LastSeen)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disabled", body["search"])

	api.db.fail(errors.New("down"))
	status, body = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestMetricsRequireBasicAuth(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, api.server.URL+"/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
