package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/matchwork/internal/bids"
	"github.com/ent0n29/matchwork/internal/config"
	"github.com/ent0n29/matchwork/internal/creators"
	"github.com/ent0n29/matchwork/internal/feed"
	"github.com/ent0n29/matchwork/internal/matching"
	"github.com/ent0n29/matchwork/internal/projects"
)

const testSecret = "test-secret"

type testEnv struct {
	server   *httptest.Server
	registry *feed.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		JWTSecret:      testSecret,
		AllowAnyOrigin: true,
		MatchLimit:     5,
	}
	registry := feed.NewRegistry(8)
	projectSvc := projects.NewService(projects.NewMemoryStore(), nil, registry, nil, nil)
	creatorSvc := creators.NewService(creators.NewMemoryStore(), nil, nil, nil)
	bidSvc := bids.NewService(bids.NewMemoryStore(), projectSvc, creatorSvc, registry, nil, nil)
	matcher := matching.NewMatcher(projectSvc, creatorSvc, cfg.MatchLimit)

	api := NewServer(cfg, projectSvc, creatorSvc, bidSvc, matcher, registry, nil, nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(registry.CloseAll)

	return &testEnv{server: srv, registry: registry}
}

func (e *testEnv) token(t *testing.T, userID string, role Role) string {
	t.Helper()
	token, err := SignSession(testSecret, userID, role, time.Minute)
	if err != nil {
		t.Fatalf("SignSession() error = %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestRequestsWithoutSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/projects", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateProjectRequiresBusinessRole(t *testing.T) {
	env := newTestEnv(t)
	creatorToken := env.token(t, "c1", RoleCreator)

	resp := env.do(t, http.MethodPost, "/v1/projects", creatorToken, projects.CreateRequest{Title: "nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestGetMissingProject(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "owner-1", RoleBusiness)

	resp := env.do(t, http.MethodGet, "/v1/projects/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody[errorResponse](t, resp)
	if body.Code != "not_found" {
		t.Fatalf("code = %q, want not_found", body.Code)
	}
}

func TestMarketplaceFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, "owner-1", RoleBusiness)
	creatorA := env.token(t, "creator-a", RoleCreator)
	creatorB := env.token(t, "creator-b", RoleCreator)

	// Business posts a project.
	resp := env.do(t, http.MethodPost, "/v1/projects", owner, projects.CreateRequest{
		Title:      "Launch video",
		Skills:     []string{"Video", "editing"},
		BudgetTier: "standard",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project status = %d, want 201", resp.StatusCode)
	}
	project := decodeBody[projects.Project](t, resp)

	// Creators register their profiles.
	for token, id := range map[string]string{creatorA: "creator-a", creatorB: "creator-b"} {
		resp = env.do(t, http.MethodPut, "/v1/creators/"+id, token, creators.UpsertRequest{
			Name:   id,
			Skills: []string{"video"},
			Tier:   "standard",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upsert %s status = %d, want 200", id, resp.StatusCode)
		}
	}

	// Matching sees both creators.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/v1/projects/%s/matches", project.ID), owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matches status = %d, want 200", resp.StatusCode)
	}
	matches := decodeBody[[]matching.Match](t, resp)
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}

	// Both creators bid.
	bidPath := fmt.Sprintf("/v1/projects/%s/bids", project.ID)
	resp = env.do(t, http.MethodPost, bidPath, creatorA, bids.PlaceRequest{Amount: 1200})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bid A status = %d, want 201", resp.StatusCode)
	}
	winning := decodeBody[bids.Bid](t, resp)
	resp = env.do(t, http.MethodPost, bidPath, creatorB, bids.PlaceRequest{Amount: 900})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bid B status = %d, want 201", resp.StatusCode)
	}

	// Only the owner may accept.
	resp = env.do(t, http.MethodPost, "/v1/bids/"+winning.ID+"/accept", creatorB, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("accept by non-owner status = %d, want 403", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/v1/bids/"+winning.ID+"/accept", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status = %d, want 200", resp.StatusCode)
	}
	accepted := decodeBody[bids.Bid](t, resp)
	if accepted.Status != bids.StatusAccepted {
		t.Fatalf("accepted status = %q, want %q", accepted.Status, bids.StatusAccepted)
	}

	// The project moved to matched, so further bids conflict.
	resp = env.do(t, http.MethodPost, bidPath, creatorB, bids.PlaceRequest{Amount: 800})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("bid on matched project status = %d, want 409", resp.StatusCode)
	}

	// Dashboard reflects the lifecycle change.
	resp = env.do(t, http.MethodGet, "/v1/dashboard", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", resp.StatusCode)
	}
}

func TestUpsertOtherProfileForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "creator-a", RoleCreator)

	resp := env.do(t, http.MethodPut, "/v1/creators/creator-b", token, creators.UpsertRequest{Name: "Mallory"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestCreatorProfileNeverErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "viewer", RoleBusiness)

	resp := env.do(t, http.MethodGet, "/v1/creators/ghost", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 placeholder", resp.StatusCode)
	}
	profile := decodeBody[creators.Creator](t, resp)
	if profile.Name != "Unavailable" {
		t.Fatalf("placeholder name = %q, want Unavailable", profile.Name)
	}
}

func TestFeedSocketDeliversEvents(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, "owner-1", RoleBusiness)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/v1/feed/ws?token=" + owner
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial feed socket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	created := env.do(t, http.MethodPost, "/v1/projects", owner, projects.CreateRequest{Title: "Feed test"})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create project status = %d, want 201", created.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev feed.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read feed event: %v", err)
	}
	if ev.Type != feed.EventProjectCreated {
		t.Fatalf("event type = %q, want %q", ev.Type, feed.EventProjectCreated)
	}
}

func TestFeedSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/v1/feed/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("dial without token succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v, want 401", resp)
	}
	resp.Body.Close()
}
