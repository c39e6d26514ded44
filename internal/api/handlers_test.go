package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/cronology/cronology/internal/display"
	"github.com/cronology/cronology/internal/event"
	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
	"github.com/cronology/cronology/internal/timer"
)

type recordingBroadcaster struct {
	mu        sync.Mutex
	envelopes []*events.Envelope
}

func (b *recordingBroadcaster) Broadcast(eventID int64, env *events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, env)
}

func (b *recordingBroadcaster) byType(typ events.Type) []*events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*events.Envelope
	for _, env := range b.envelopes {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

type testAPI struct {
	server   *httptest.Server
	bc       *recordingBroadcaster
	registry *timer.Registry
}

func newTestAPI(t *testing.T, auth Authenticator) *testAPI {
	t.Helper()

	clock := clockwork.NewFakeClock()
	gen := display.NewGenerator("")
	codes := display.NewRegistry(gen)
	sessions := display.NewSessionCache(gen, clock, 0)
	repo := event.NewRepository()
	eventApp := event.NewApp(repo, event.NewTemplateRepository(), codes)
	displayApp := display.NewApp(codes, sessions, repo)

	bc := &recordingBroadcaster{}
	registry := timer.NewRegistry()
	timerApp := timer.NewApp(registry, repo, bc, clock)

	mux := http.NewServeMux()
	NewHandler(eventApp, timerApp, displayApp, bc, auth).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testAPI{server: server, bc: bc, registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	resp, body := a.do(t, http.MethodPost, "/api/events", map[string]any{
		"name": "Sunday Service",
		"activities": []map[string]any{
			{"name": "Welcome", "duration": 5},
			{"name": "Sermon", "duration": 30},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created models.Event
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal created event: %v", err)
	}
	if len(created.DisplayCode) != display.CodeLength {
		t.Fatalf("expected display code on create, got %q", created.DisplayCode)
	}

	base := fmt.Sprintf("/api/events/%d", created.ID)

	resp, body = a.do(t, http.MethodPost, base+"/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var started models.Event
	json.Unmarshal(body, &started)
	if started.Status != models.EventStatusActive {
		t.Fatalf("expected active after start, got %s", started.Status)
	}

	resp, body = a.do(t, http.MethodGet, base+"/timer-state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("timer-state: expected 200, got %d", resp.StatusCode)
	}
	var snap timer.StateSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.TimerState == nil {
		t.Fatal("expected non-nil timer state after start")
	}
	if snap.TimerState.RemainingTime != 300_000 {
		t.Fatalf("expected 300000ms remaining, got %d", snap.TimerState.RemainingTime)
	}

	resp, _ = a.do(t, http.MethodPost, base+"/goto-activity", map[string]int{"activityIndex": 5})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("goto out of range: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = a.do(t, http.MethodPost, base+"/extend-time", map[string]int{"minutes": 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extend-time: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = a.do(t, http.MethodDelete, base, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	if _, ok := a.registry.Get(created.ID); ok {
		t.Fatal("timer state survived event deletion")
	}
}

func TestStartUnknownEventReturns404(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	resp, _ := a.do(t, http.MethodPost, "/api/events/42/start", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestInvalidEventIDReturns400(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	resp, _ := a.do(t, http.MethodGet, "/api/events/not-a-number", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCompletingEventTearsDownTimer(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	_, body := a.do(t, http.MethodPost, "/api/events", map[string]any{
		"name":       "Sunday Service",
		"activities": []map[string]any{{"name": "Welcome", "duration": 5}},
	})
	var created models.Event
	json.Unmarshal(body, &created)

	base := fmt.Sprintf("/api/events/%d", created.ID)
	a.do(t, http.MethodPost, base+"/start", nil)
	if _, ok := a.registry.Get(created.ID); !ok {
		t.Fatal("expected timer state after start")
	}

	resp, body := a.do(t, http.MethodPut, base, map[string]string{"status": "completed"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", resp.StatusCode, body)
	}
	if _, ok := a.registry.Get(created.ID); ok {
		t.Fatal("timer state survived completion")
	}
	if got := len(a.bc.byType(events.TypeEventUpdated)); got != 1 {
		t.Fatalf("expected 1 eventUpdated broadcast, got %d", got)
	}
}

func TestDisplayFlowOverHTTP(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	_, body := a.do(t, http.MethodPost, "/api/events", map[string]any{"name": "Sunday Service"})
	var created models.Event
	json.Unmarshal(body, &created)

	resp, _ := a.do(t, http.MethodGet, "/api/display/code/nope", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed code: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = a.do(t, http.MethodGet, "/api/display/code/ZZZZZZ", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code: expected 404, got %d", resp.StatusCode)
	}

	resp, body = a.do(t, http.MethodGet, "/api/display/code/"+created.DisplayCode, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result display.LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal lookup result: %v", err)
	}
	if result.EventID != created.ID || result.SessionID == "" {
		t.Fatalf("unexpected lookup result %+v", result)
	}

	path := fmt.Sprintf("/api/display/session/%s/event/%d", result.SessionID, created.ID)
	resp, _ = a.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate session: expected 200, got %d", resp.StatusCode)
	}

	path = fmt.Sprintf("/api/display/session/%s/event/%d", result.SessionID, created.ID+1)
	resp, _ = a.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("mismatched session: expected 403, got %d", resp.StatusCode)
	}
}

func TestRegenerateCodeOverHTTP(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	_, body := a.do(t, http.MethodPost, "/api/events", map[string]any{"name": "Sunday Service"})
	var created models.Event
	json.Unmarshal(body, &created)

	base := fmt.Sprintf("/api/events/%d", created.ID)
	resp, body := a.do(t, http.MethodPost, base+"/regenerate-code", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("regenerate: expected 200, got %d", resp.StatusCode)
	}
	var regen map[string]string
	json.Unmarshal(body, &regen)
	if regen["displayCode"] == "" || regen["displayCode"] == created.DisplayCode {
		t.Fatalf("expected a fresh code, got %q", regen["displayCode"])
	}

	resp, _ = a.do(t, http.MethodGet, "/api/display/code/"+created.DisplayCode, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("old code after regenerate: expected 404, got %d", resp.StatusCode)
	}
}

func TestJWTAuthGatesOperatorEndpoints(t *testing.T) {
	const secret = "test-secret"
	a := newTestAPI(t, NewJWTAuthenticator(secret))

	// No token.
	resp, _ := a.do(t, http.MethodGet, "/api/events", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Health stays open.
	resp, _ = a.do(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.StatusCode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "pastor",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, a.server.URL+"/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", authed.StatusCode)
	}

	// A token signed with the wrong secret is rejected.
	badSigned, _ := token.SignedString([]byte("other-secret"))
	req, _ = http.NewRequest(http.MethodGet, a.server.URL+"/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+badSigned)
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad signature, got %d", denied.StatusCode)
	}
}

func TestCreateEventRecordsPrincipal(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "pastor"})

	_, body := a.do(t, http.MethodPost, "/api/events", map[string]any{"name": "Sunday Service"})
	var created models.Event
	json.Unmarshal(body, &created)
	if created.CreatedBy != "pastor" {
		t.Fatalf("expected createdBy pastor, got %q", created.CreatedBy)
	}
}

func TestTemplatesOverHTTP(t *testing.T) {
	a := newTestAPI(t, AllowAll{Principal: "tester"})

	resp, body := a.do(t, http.MethodPost, "/api/templates", map[string]any{
		"name":       "Standard Service",
		"activities": []map[string]any{{"name": "Welcome", "duration": 5}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template: expected 201, got %d: %s", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodGet, "/api/templates", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list templates: expected 200, got %d", resp.StatusCode)
	}
	var list []event.Template
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal templates: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Standard Service" {
		t.Fatalf("unexpected template list %+v", list)
	}
}
