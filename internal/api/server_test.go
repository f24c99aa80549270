package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/security"
	"github.com/codewithboateng/archlint/internal/storage"
)

type fakeStore struct {
	runs    map[string]ir.Run
	waivers []storage.Waiver
	nextID  int64
}

func (f *fakeStore) ListRuns(limit, offset int) ([]storage.RunRow, error) {
	var out []storage.RunRow
	for id, r := range f.runs {
		out = append(out, storage.RunRow{ID: id, OK: r.Summary.OK, Findings: len(r.Findings)})
	}
	return out, nil
}

func (f *fakeStore) LoadRun(id string) (ir.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return ir.Run{}, errNotFound
	}
	return r, nil
}

func (f *fakeStore) LoadLatestRun() (ir.Run, error) {
	for _, r := range f.runs {
		return r, nil
	}
	return ir.Run{}, errNotFound
}

func (f *fakeStore) ListFindings(runID, minSeverity string) ([]ir.Finding, error) {
	r, ok := f.runs[runID]
	if !ok {
		return nil, errNotFound
	}
	var out []ir.Finding
	for _, fd := range r.Findings {
		if ir.SeverityRank(fd.Severity) >= ir.SeverityRank(ir.Severity(minSeverity)) {
			out = append(out, fd)
		}
	}
	return out, nil
}

func (f *fakeStore) ListWaivers(activeOnly bool) ([]storage.Waiver, error) { return f.waivers, nil }

func (f *fakeStore) CreateWaiver(ruleID, file, pattern, reason, createdBy string, expires time.Time) (int64, error) {
	f.nextID++
	f.waivers = append(f.waivers, storage.Waiver{
		ID: f.nextID, RuleID: ruleID, File: file, PatternSub: pattern,
		Reason: reason, CreatedBy: createdBy, ExpiresAt: expires,
	})
	return f.nextID, nil
}

func (f *fakeStore) RevokeWaiver(id int64, by string) error { return nil }

type fakeUsers struct {
	hash     string
	sessions map[string]storage.User
}

func (f *fakeUsers) GetUserByUsername(name string) (storage.User, string, error) {
	if name != "ama" {
		return storage.User{}, "", errNotFound
	}
	return storage.User{ID: 1, Username: "ama", Role: "admin"}, f.hash, nil
}

func (f *fakeUsers) CreateSession(userID int64, token string, exp time.Time) error {
	f.sessions[token] = storage.User{ID: userID, Username: "ama", Role: "admin"}
	return nil
}

func (f *fakeUsers) GetSession(token string) (storage.User, error) {
	u, ok := f.sessions[token]
	if !ok {
		return storage.User{}, errNotFound
	}
	return u, nil
}

func (f *fakeUsers) DeleteSession(token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeUsers) LogAudit(username, action, resource string, meta map[string]any) error {
	return nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

func newTestServer(t *testing.T) (*Server, *fakeStore, *fakeUsers) {
	t.Helper()
	hash, err := security.HashPassword("secret")
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{runs: map[string]ir.Run{
		"run-1": {
			ID: "run-1",
			Findings: []ir.Finding{
				{ID: "f1", RuleID: "R1", Severity: ir.SevError},
				{ID: "f2", RuleID: "R2", Severity: ir.SevWarning},
			},
			Summary: ir.Summary{OK: false},
		},
	}}
	users := &fakeUsers{hash: hash, sessions: map[string]storage.User{}}
	srv := &Server{
		DB:              store,
		UserStore:       users,
		Logger:          slog.Default(),
		SessionDuration: time.Hour,
	}
	return srv, store, users
}

func TestHealthAndRunEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/run-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get run = %d", rec.Code)
	}
	var run ir.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.ID != "run-1" || len(run.Findings) != 2 {
		t.Errorf("run payload = %+v", run)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/run-1/findings?min_severity=error", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("findings = %d", rec.Code)
	}
	var payload struct {
		Items []ir.Finding `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Items) != 1 || payload.Items[0].RuleID != "R1" {
		t.Errorf("severity floor not applied: %+v", payload.Items)
	}
}

func TestLoginSessionAndProtectedRoutes(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Routes()

	// waiver creation without a session is rejected
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/waivers", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated waiver create = %d, want 401", rec.Code)
	}

	// bad password
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"username":"ama","password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", rec.Code)
	}

	// login
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"username":"ama","password":"secret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "archlint_session" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("no session cookie set")
	}

	// authenticated waiver create
	req := httptest.NewRequest("POST", "/api/v1/waivers", strings.NewReader(
		`{"rule_id":"R1","reason":"migration","expires_at":"2027-01-01T00:00:00Z"}`))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("waiver create = %d: %s", rec.Code, rec.Body)
	}
	if len(store.waivers) != 1 || store.waivers[0].CreatedBy != "ama" {
		t.Errorf("waiver not recorded: %+v", store.waivers)
	}

	// me
	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"admin"`) {
		t.Fatalf("me = %d: %s", rec.Code, rec.Body)
	}

	// logout kills the session
	req = httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d", rec.Code)
	}
	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}
