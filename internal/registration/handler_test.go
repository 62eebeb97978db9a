// AngelaMos | 2026
// handler_test.go

package registration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/gatekeeper/internal/core"
	"github.com/angelamos/gatekeeper/internal/registration"
)

func newTestHandler(t *testing.T) (chi.Router, *fixture) {
	t.Helper()

	f := newFixture(t, false)
	router := chi.NewRouter()
	registration.NewHandler(f.service).RegisterRoutes(router)
	return router, f
}

func TestRegisterFormEncoded(t *testing.T) {
	router, f := newTestHandler(t)
	name := f.mintToken(t, 1)

	form := url.Values{
		"username": {"alice"},
		"password": {"correct horse"},
		"confirm":  {"correct horse"},
		"token":    {name},
	}

	req := httptest.NewRequest(
		http.MethodPost, "/register", strings.NewReader(form.Encode()),
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp registration.SuccessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "@alice:example.org" || resp.Status != "success" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegisterJSON(t *testing.T) {
	router, f := newTestHandler(t)
	name := f.mintToken(t, 1)

	body := `{
		"username": "alice",
		"password": "correct horse",
		"confirm":  "correct horse",
		"token":    "` + name + `"
	}`

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	router, _ := newTestHandler(t)

	form := url.Values{
		"username": {"bad name!"},
		"password": {"short"},
		"confirm":  {"different"},
		"token":    {"nope"},
	}

	req := httptest.NewRequest(
		http.MethodPost, "/register", strings.NewReader(form.Encode()),
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body struct {
		Errcode string              `json:"errcode"`
		Error   map[string][]string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Errcode != core.CodeBadUserRequest {
		t.Fatalf("errcode = %q, want %q", body.Errcode, core.CodeBadUserRequest)
	}
	for _, field := range []string{"username", "password", "confirm", "token"} {
		if len(body.Error[field]) == 0 {
			t.Fatalf("field %q missing from error body: %v", field, body.Error)
		}
	}
}

func TestRegisterUpstreamRejectionPassedThrough(t *testing.T) {
	router, f := newTestHandler(t)
	name := f.mintToken(t, 1)

	f.upstream.status = http.StatusBadRequest
	f.upstream.body = map[string]string{
		"errcode": "M_USER_IN_USE",
		"error":   "User ID already taken.",
	}

	form := url.Values{
		"username": {"alice"},
		"password": {"correct horse"},
		"confirm":  {"correct horse"},
		"token":    {name},
	}

	req := httptest.NewRequest(
		http.MethodPost, "/register", strings.NewReader(form.Encode()),
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body core.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Errcode != "M_USER_IN_USE" {
		t.Fatalf("errcode = %q, want M_USER_IN_USE", body.Errcode)
	}
	if body.Error != "User ID already taken." {
		t.Fatalf("error = %v, want upstream message verbatim", body.Error)
	}
}

func TestRegisterUpstreamDownIsInternal(t *testing.T) {
	router, f := newTestHandler(t)
	name := f.mintToken(t, 1)
	f.upstream.server.Close()

	form := url.Values{
		"username": {"alice"},
		"password": {"correct horse"},
		"confirm":  {"correct horse"},
		"token":    {name},
	}

	req := httptest.NewRequest(
		http.MethodPost, "/register", strings.NewReader(form.Encode()),
	)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
