package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pingkeep/pingkeep/internal/config"
	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/prober"
	"github.com/pingkeep/pingkeep/internal/recorder"
	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/scheduler"
	"github.com/pingkeep/pingkeep/internal/stats"
	"github.com/pingkeep/pingkeep/internal/storage/memory"
)

type testEnv struct {
	router http.Handler
	store  *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:         8080,
		JWTSecret:    "test-secret-test-secret-test-secret",
		Environment:  "development",
		CORSOrigins:  []string{"http://localhost:3000"},
		ProbeTimeout: 2 * time.Second,
	}

	store := memory.New()
	reg := registry.New(store)
	coordinator := scheduler.New(store, prober.New(cfg.ProbeTimeout), recorder.New(store), nil)
	calc := stats.New(store)

	return &testEnv{
		router: NewRouter(cfg, store, reg, coordinator, calc, nil),
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// setup creates the first account and returns its token.
func (e *testEnv) setup(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/setup", "", LoginRequest{Username: "admin", Password: "hunter22"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode setup response: %v", err)
	}
	return resp.Token
}

// addUser inserts a second account directly and returns a login token.
func (e *testEnv) addUser(t *testing.T, username string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Username: username, Password: string(hash), Active: true, CreatedAt: time.Now()}
	if err := e.store.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: "password2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func (e *testEnv) createURL(t *testing.T, token string, params registry.CreateParams) models.MonitoredURL {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/urls", token, params)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create url failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		URL models.MonitoredURL `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.URL
}

func TestSetupOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.setup(t)

	rec := env.do(t, http.MethodPost, "/api/auth/setup", "", LoginRequest{Username: "second", Password: "pw123456"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected second setup to be rejected, got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.setup(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/urls", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateAndListURLs(t *testing.T) {
	env := newTestEnv(t)
	token := env.setup(t)

	created := env.createURL(t, token, registry.CreateParams{
		Target:          "https://example.com/health",
		Name:            "example",
		IntervalMinutes: 15,
	})
	if created.IntervalMinutes != 15 {
		t.Errorf("expected interval 15, got %d", created.IntervalMinutes)
	}

	rec := env.do(t, http.MethodGet, "/api/urls", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	var resp struct {
		URLs []models.MonitoredURL `json:"urls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.URLs) != 1 || resp.URLs[0].ID != created.ID || resp.URLs[0].IntervalMinutes != 15 {
		t.Errorf("round trip mismatch: %+v", resp.URLs)
	}
}

func TestCreateURLValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.setup(t)

	rec := env.do(t, http.MethodPost, "/api/urls", token, registry.CreateParams{Target: "not a url"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid target: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/urls", token, registry.CreateParams{
		Target:          "https://example.com",
		IntervalMinutes: -1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid interval: expected 400, got %d", rec.Code)
	}
}

func TestCrossOwnerAccessIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.setup(t)
	other := env.addUser(t, "other")

	created := env.createURL(t, owner, registry.CreateParams{Target: "https://example.com"})

	path := fmt.Sprintf("/api/urls/%d", created.ID)
	if rec := env.do(t, http.MethodGet, path, other, nil); rec.Code != http.StatusForbidden {
		t.Errorf("get: expected 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, other, nil); rec.Code != http.StatusForbidden {
		t.Errorf("delete: expected 403, got %d", rec.Code)
	}
}

func TestDeleteURLIsSoftAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	token := env.setup(t)

	created := env.createURL(t, token, registry.CreateParams{Target: "https://example.com"})
	path := fmt.Sprintf("/api/urls/%d", created.ID)

	if rec := env.do(t, http.MethodDelete, path, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("first delete: expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("second delete: expected 204, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/urls", token, nil)
	var resp struct {
		URLs []models.MonitoredURL `json:"urls"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.URLs) != 0 {
		t.Errorf("expected deleted URL excluded from listing, got %d", len(resp.URLs))
	}
}

func TestCheckNowRecordsAndReturnsResult(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	env := newTestEnv(t)
	token := env.setup(t)
	created := env.createURL(t, token, registry.CreateParams{Target: target.URL})

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/urls/%d/check", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check now failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Check  models.CheckRecord `json:"check"`
		Result prober.Result      `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode check response: %v", err)
	}
	if !resp.Check.Success || resp.Check.StatusCode == nil || *resp.Check.StatusCode != 200 {
		t.Errorf("unexpected check record: %+v", resp.Check)
	}
	if !resp.Result.Success {
		t.Errorf("unexpected probe result: %+v", resp.Result)
	}

	// The recorded check shows up in stats
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/urls/%d/stats", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats failed: %d", rec.Code)
	}
	var statsResp struct {
		Stats stats.Snapshot `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &statsResp); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if statsResp.Stats.TotalChecks != 1 || statsResp.Stats.UptimePercent != 100 {
		t.Errorf("unexpected stats: %+v", statsResp.Stats)
	}
	if statsResp.Stats.WindowHours != 24 {
		t.Errorf("expected default 24h window, got %d", statsResp.Stats.WindowHours)
	}
}

func TestStatsRejectsInvalidWindow(t *testing.T) {
	env := newTestEnv(t)
	token := env.setup(t)
	created := env.createURL(t, token, registry.CreateParams{Target: "https://example.com"})

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/urls/%d/stats?hours=0", created.ID), token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero window, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/urls/%d/stats?hours=-5", created.ID), token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative window, got %d", rec.Code)
	}
}

func TestGetChecksHistory(t *testing.T) {
	env := newTestEnv(t)
	token := env.setup(t)
	created := env.createURL(t, token, registry.CreateParams{Target: "https://example.com"})

	for i := 0; i < 3; i++ {
		code := 200
		env.store.InsertCheck(context.Background(), &models.CheckRecord{
			URLID:      created.ID,
			StatusCode: &code,
			Success:    true,
			CheckedAt:  time.Now().Add(-time.Duration(i) * time.Minute),
		})
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/urls/%d/checks?limit=2", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get checks failed: %d", rec.Code)
	}
	var resp struct {
		Checks []models.CheckRecord `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode checks: %v", err)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected limit to apply, got %d checks", len(resp.Checks))
	}
	if resp.Checks[0].CheckedAt.Before(resp.Checks[1].CheckedAt) {
		t.Error("expected most recent check first")
	}
}
