package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/model"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.Wrap(model.ErrNotFound, "session 1"), http.StatusNotFound},
		{&model.TransitionError{From: model.PhaseActive, To: model.PhaseActive}, http.StatusConflict},
		{&model.PhaseError{Op: "add feedback", Phase: model.PhaseRegistration}, http.StatusConflict},
		{&model.ValidationError{Index: -1, Field: "entries", Reason: "empty"}, http.StatusUnprocessableEntity},
		{model.StoreFailure("list", errors.New("disk on fire")), http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Fatalf("StatusOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestLogErrorHidesStoreFailures(t *testing.T) {
	w := httptest.NewRecorder()
	LogError(w, "test", model.StoreFailure("list", errors.New("secret detail")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body != http.StatusText(http.StatusInternalServerError)+"\n" {
		t.Fatalf("store detail leaked: %q", body)
	}
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	if buf.Status() != 0 {
		t.Fatalf("expected no status, got %d", buf.Status())
	}

	buf.Header().Set("x-test", "1")
	buf.Write([]byte("hello"))
	if buf.Status() != http.StatusOK {
		t.Fatalf("implicit status should be 200, got %d", buf.Status())
	}
	buf.WriteHeader(http.StatusAccepted)
	buf.WriteHeader(http.StatusTeapot)
	if buf.Status() != http.StatusAccepted {
		t.Fatalf("first status should stick, got %d", buf.Status())
	}

	w := httptest.NewRecorder()
	if err := buf.Flush(w); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if w.Code != http.StatusAccepted || w.Body.String() != "hello" || w.Header().Get("x-test") != "1" {
		t.Fatalf("unexpected flushed response %d %q %v", w.Code, w.Body.String(), w.Header())
	}
}

func TestCredentials(t *testing.T) {
	cfg := config.Config{
		DBDriver:    "sqlite3",
		DBUrl:       filepath.Join(t.TempDir(), "users.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := SeedAdmin(ctx, db, "admin", "first"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := SeedAdmin(ctx, db, "admin", "second"); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	verifier := CredentialsVerifier(db)
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := verifier.ValidateUser("admin", "second", "", r); err != nil {
		t.Fatalf("expected reseeded password to validate: %v", err)
	}
	if err := verifier.ValidateUser("admin", "first", "", r); err == nil {
		t.Fatal("old password still validates")
	}
	if err := verifier.ValidateUser("nobody", "second", "", r); err == nil {
		t.Fatal("unknown user validates")
	}

	if err := verifier.StoreTokenID(oauth.UserToken, "admin", "tid", "rid"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	if err := verifier.ValidateTokenID(oauth.UserToken, "admin", "tid", "rid"); err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if err := verifier.ValidateTokenID(oauth.UserToken, "admin", "tid", "rid"); err == nil {
		t.Fatal("refresh token was accepted twice")
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	cfg := config.Config{
		DBDriver:    "sqlite3",
		DBUrl:       filepath.Join(t.TempDir(), "users.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	resp, tokens, err := Refresh(NewBearerServer(db, cfg), "not-a-token")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tokens != nil || resp.Status() == http.StatusOK {
		t.Fatalf("garbage refresh token accepted: status %d", resp.Status())
	}
}
