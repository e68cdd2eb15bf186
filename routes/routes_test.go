package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/store"
	"github.com/mbolis/quick-feedback/token"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		Addr:        "127.0.0.1:0",
		DBDriver:    "sqlite3",
		DBUrl:       filepath.Join(t.TempDir(), "feedback.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := httpx.SeedAdmin(context.Background(), db, "admin", "hunter2"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	a := app.App{
		Service:      feedback.NewService(store.NewSQLite(db), token.Random()),
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
	srv := httptest.NewServer(Wire(a))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

// do sends body as JSON (or as a form when it is url.Values) and decodes
// a JSON response into out when out is not nil.
func (ts *testServer) do(method, path, bearer string, body any, out any) int {
	ts.t.Helper()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
		reader = strings.NewReader(string(raw))
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		ts.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if bearer != "" {
		req.Header.Set("authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			ts.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (ts *testServer) login(user, pass string) (httpx.Tokens, int) {
	ts.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/login", nil)
	req.SetBasicAuth(user, pass)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()

	tokens := httpx.Tokens{}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
			ts.t.Fatalf("decode tokens: %v", err)
		}
	}
	return tokens, resp.StatusCode
}

func (ts *testServer) adminToken() string {
	ts.t.Helper()
	tokens, status := ts.login("admin", "hunter2")
	if status != http.StatusOK || tokens.AccessToken == "" {
		ts.t.Fatalf("login failed with status %d", status)
	}
	return tokens.AccessToken
}

func TestFeedbackRound(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken()

	var created struct {
		Session    model.Session `json:"session"`
		SessionURL string        `json:"session_url"`
	}
	if status := ts.do("POST", "/api/admin/sessions", admin, map[string]string{"name": "Retro"}, &created); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	tok := created.Session.Token
	if !token.Valid(tok) || !strings.HasSuffix(created.SessionURL, "/sessions/"+tok) {
		t.Fatalf("unexpected creation response %+v", created)
	}
	base := "/api/sessions/" + tok

	var alice, bob model.Participant
	if status := ts.do("POST", base+"/participants", "", map[string]string{"name": "Alice"}, &alice); status != http.StatusCreated {
		t.Fatalf("register Alice: status %d", status)
	}
	if status := ts.do("POST", base+"/participants", "", url.Values{"name": {"Bob"}}, &bob); status != http.StatusCreated {
		t.Fatalf("register Bob by form: status %d", status)
	}

	var status struct {
		Phase   model.Phase `json:"phase"`
		Started bool        `json:"started"`
	}
	ts.do("GET", base+"/status", "", nil, &status)
	if status.Phase != model.PhaseRegistration || status.Started {
		t.Fatalf("unexpected status %+v", status)
	}

	entry := map[string]any{"entries": []map[string]any{
		{"recipient_id": bob.ID, "question_1": "Great teamwork", "question_2": "More documentation"},
	}}
	if code := ts.do("POST", base+"/feedback", "", entry, nil); code != http.StatusConflict {
		t.Fatalf("feedback before start: expected 409, got %d", code)
	}

	adminBase := "/api/admin/sessions/" + tok
	if code := ts.do("POST", adminBase+"/start", admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("start: status %d", code)
	}
	if code := ts.do("POST", adminBase+"/start", admin, nil, nil); code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", code)
	}
	ts.do("GET", base+"/status", "", nil, &status)
	if !status.Started {
		t.Fatalf("expected started, got %+v", status)
	}

	if code := ts.do("POST", base+"/feedback", "", entry, nil); code != http.StatusCreated {
		t.Fatalf("submit feedback: status %d", code)
	}

	var monitor struct {
		Completion []model.Completion `json:"completion"`
	}
	if code := ts.do("GET", adminBase+"/monitor", admin, nil, &monitor); code != http.StatusOK {
		t.Fatalf("monitor: status %d", code)
	}
	if len(monitor.Completion) != 2 ||
		monitor.Completion[0].Name != "Alice" || monitor.Completion[0].Submitted != 0 || monitor.Completion[0].Expected != 1 ||
		monitor.Completion[1].Name != "Bob" || monitor.Completion[1].Submitted != 1 || monitor.Completion[1].Expected != 1 {
		t.Fatalf("unexpected monitor %+v", monitor.Completion)
	}

	if code := ts.do("POST", adminBase+"/close", admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("close: status %d", code)
	}

	var review struct {
		Feedback []model.RecipientFeedback `json:"feedback"`
	}
	if code := ts.do("GET", adminBase+"/review", admin, nil, &review); code != http.StatusOK {
		t.Fatalf("review: status %d", code)
	}
	if len(review.Feedback) != 1 || review.Feedback[0].ParticipantID != bob.ID ||
		review.Feedback[0].Entries[0].Question1 != "Great teamwork" {
		t.Fatalf("unexpected review %+v", review.Feedback)
	}

	var legacy struct {
		Feedback map[string][]model.ReviewEntry `json:"feedback"`
	}
	ts.do("GET", adminBase+"/review?legacy=1", admin, nil, &legacy)
	if len(legacy.Feedback["Bob"]) != 1 {
		t.Fatalf("unexpected legacy review %+v", legacy.Feedback)
	}

	var download struct {
		Session string              `json:"session"`
		Entries []model.ReviewEntry `json:"entries"`
	}
	path := fmt.Sprintf("%s/participants/%d/feedback", adminBase, bob.ID)
	if code := ts.do("GET", path, admin, nil, &download); code != http.StatusOK {
		t.Fatalf("download: status %d", code)
	}
	if download.Session != "Retro" || len(download.Entries) != 1 {
		t.Fatalf("unexpected download %+v", download)
	}

	if code := ts.do("POST", base+"/participants", "", map[string]string{"name": "Carol"}, nil); code != http.StatusConflict {
		t.Fatalf("register after close: expected 409, got %d", code)
	}

	if code := ts.do("DELETE", adminBase, admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
	if code := ts.do("GET", base, "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", code)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken()

	var created struct {
		Session model.Session `json:"session"`
	}
	ts.do("POST", "/api/admin/sessions", admin, map[string]string{"name": "Retro"}, &created)
	base := "/api/sessions/" + created.Session.Token

	var alice model.Participant
	ts.do("POST", base+"/participants", "", map[string]string{"name": "Alice"}, &alice)
	ts.do("POST", "/api/admin/sessions/"+created.Session.Token+"/start", admin, nil, nil)

	bad := map[string]any{"entries": []map[string]any{
		{"recipient_id": alice.ID, "question_1": "", "question_2": "x"},
	}}
	if code := ts.do("POST", base+"/feedback", "", bad, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if code := ts.do("POST", base+"/participants", "", map[string]string{"name": " "}, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank name, got %d", code)
	}
	if code := ts.do("POST", base+"/feedback", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without body, got %d", code)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	if code := ts.do("GET", "/api/sessions/zzzzzzzz", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := ts.do("GET", "/api/sessions/zzzzzzzz/status", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	if code := ts.do("GET", "/api/admin/sessions", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := ts.do("GET", "/api/admin/sessions", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", code)
	}

	var list struct {
		Sessions []model.Session `json:"sessions"`
	}
	if code := ts.do("GET", "/api/admin/sessions", ts.adminToken(), nil, &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if list.Sessions == nil || len(list.Sessions) != 0 {
		t.Fatalf("expected empty session list, got %+v", list.Sessions)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	ts := newTestServer(t)

	if _, status := ts.login("admin", "wrong"); status == http.StatusOK {
		t.Fatal("login with wrong password succeeded")
	}

	tokens, status := ts.login("admin", "hunter2")
	if status != http.StatusOK || tokens.RefreshToken == "" {
		t.Fatalf("login: status %d, tokens %+v", status, tokens)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/refresh", nil)
	req.Header.Set("authorization", "Refresh "+tokens.RefreshToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, ts.srv.URL+"/api/refresh", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh without token: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without refresh token, got %d", resp2.StatusCode)
	}
}
