// AngelaMos | 2026
// service_test.go

package registration_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelamos/gatekeeper/internal/config"
	"github.com/angelamos/gatekeeper/internal/core"
	"github.com/angelamos/gatekeeper/internal/registration"
	"github.com/angelamos/gatekeeper/internal/synapse"
	"github.com/angelamos/gatekeeper/internal/token"
)

// upstream is a homeserver stub. registrations counts POSTs; status and
// body control the register response.
type upstream struct {
	server        *httptest.Server
	registrations atomic.Int64
	status        int
	body          map[string]string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{
		status: http.StatusOK,
		body: map[string]string{
			"access_token": "syt_token",
			"home_server":  "example.org",
			"user_id":      "@alice:example.org",
		},
	}

	u.server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				//nolint:errcheck // test stub
				json.NewEncoder(w).Encode(map[string]string{"nonce": "n"})
				return
			}

			u.registrations.Add(1)
			w.WriteHeader(u.status)
			//nolint:errcheck // test stub
			json.NewEncoder(w).Encode(u.body)
		},
	))
	t.Cleanup(u.server.Close)
	return u
}

type fixture struct {
	service  *registration.Service
	store    *token.Store
	upstream *upstream
}

func newFixture(t *testing.T, ipLogging bool) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := token.NewStore(token.NewMemoryRepository(), logger, 3)
	up := newUpstream(t)

	client := synapse.NewClient(config.HomeserverConfig{
		URL:            up.server.URL,
		ServerName:     "example.org",
		SharedSecret:   "registration-secret",
		RequestTimeout: 2 * time.Second,
	}, logger)

	validator, err := registration.NewValidator(config.RegistrationConfig{
		PasswordMinLength: 8,
	}, "example.org")
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}

	return &fixture{
		service:  registration.NewService(store, client, validator, logger, ipLogging),
		store:    store,
		upstream: up,
	}
}

func (f *fixture) mintToken(t *testing.T, maxUsage int) string {
	t.Helper()

	created, err := f.store.New(t.Context(), nil, maxUsage)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return created.Name
}

func TestRegisterSuccess(t *testing.T) {
	f := newFixture(t, false)
	name := f.mintToken(t, 1)

	resp, fieldErrs, err := f.service.Register(t.Context(), registration.RegisterRequest{
		Username: "@alice:example.org",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    name,
	}, "203.0.113.7")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if fieldErrs != nil {
		t.Fatalf("Register() field errors: %v", fieldErrs)
	}

	if resp.UserID != "@alice:example.org" || resp.AccessToken != "syt_token" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Status != "success" || resp.StatusCode != 200 {
		t.Fatalf("status fields = %q/%d", resp.Status, resp.StatusCode)
	}

	got, err := f.store.Get(t.Context(), name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Used != 1 {
		t.Fatalf("Used = %d after registration, want 1", got.Used)
	}
	if len(got.IPs) != 0 {
		t.Fatalf("IPs recorded with ip logging disabled: %v", got.IPs)
	}
}

func TestRegisterRecordsIP(t *testing.T) {
	f := newFixture(t, true)
	name := f.mintToken(t, 0)

	_, fieldErrs, err := f.service.Register(t.Context(), registration.RegisterRequest{
		Username: "alice",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    name,
	}, "203.0.113.7")
	if err != nil || fieldErrs != nil {
		t.Fatalf("Register() = %v, %v", fieldErrs, err)
	}

	got, err := f.store.Get(t.Context(), name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got.IPs) != 1 || got.IPs[0] != "203.0.113.7" {
		t.Fatalf("IPs = %v, want [203.0.113.7]", got.IPs)
	}
}

func TestRegisterUnknownToken(t *testing.T) {
	f := newFixture(t, false)

	req := registration.RegisterRequest{
		Username: "alice",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    "NoSuchTokenHere",
	}

	_, fieldErrs, err := f.service.Register(t.Context(), req, "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if len(fieldErrs["token"]) == 0 {
		t.Fatalf("no token error for unknown token: %v", fieldErrs)
	}
	if n := f.upstream.registrations.Load(); n != 0 {
		t.Fatalf("upstream called %d times for invalid token", n)
	}
}

func TestRegisterDisabledTokenIndistinguishable(t *testing.T) {
	f := newFixture(t, false)
	name := f.mintToken(t, 0)
	if _, err := f.store.Disable(t.Context(), name); err != nil {
		t.Fatalf("Disable() error: %v", err)
	}

	req := registration.RegisterRequest{
		Username: "alice",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    name,
	}

	_, disabledErrs, err := f.service.Register(t.Context(), req, "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	req.Token = "NoSuchTokenHere"
	_, unknownErrs, err := f.service.Register(t.Context(), req, "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if len(disabledErrs["token"]) == 0 || len(unknownErrs["token"]) == 0 {
		t.Fatal("expected token errors for both cases")
	}
	if disabledErrs["token"][0] != unknownErrs["token"][0] {
		t.Fatalf("disabled and unknown tokens answer differently: %q vs %q",
			disabledErrs["token"][0], unknownErrs["token"][0])
	}
}

func TestRegisterAggregatesFieldErrors(t *testing.T) {
	f := newFixture(t, false)

	_, fieldErrs, err := f.service.Register(t.Context(), registration.RegisterRequest{
		Username: "bad name!",
		Password: "short",
		Confirm:  "different",
		Token:    "nope",
	}, "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	for _, field := range []string{"username", "password", "confirm", "token"} {
		if len(fieldErrs[field]) == 0 {
			t.Fatalf("field %q missing: %v", field, fieldErrs)
		}
	}
	if n := f.upstream.registrations.Load(); n != 0 {
		t.Fatalf("upstream called %d times for invalid form", n)
	}
}

func TestRegisterUpstreamRejectedKeepsToken(t *testing.T) {
	f := newFixture(t, false)
	name := f.mintToken(t, 1)

	f.upstream.status = http.StatusBadRequest
	f.upstream.body = map[string]string{
		"errcode": "M_USER_IN_USE",
		"error":   "User ID already taken.",
	}

	_, _, err := f.service.Register(t.Context(), registration.RegisterRequest{
		Username: "alice",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    name,
	}, "")

	var rejected *synapse.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want RejectedError", err)
	}

	got, err := f.store.Get(t.Context(), name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Used != 0 {
		t.Fatalf("token consumed despite upstream rejection, Used = %d", got.Used)
	}
}

func TestRegisterUpstreamDownKeepsToken(t *testing.T) {
	f := newFixture(t, false)
	name := f.mintToken(t, 1)
	f.upstream.server.Close()

	_, _, err := f.service.Register(t.Context(), registration.RegisterRequest{
		Username: "alice",
		Password: "correct horse",
		Confirm:  "correct horse",
		Token:    name,
	}, "")
	if !errors.Is(err, core.ErrUpstreamUnreachable) {
		t.Fatalf("error = %v, want ErrUpstreamUnreachable", err)
	}

	got, err := f.store.Get(t.Context(), name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Used != 0 {
		t.Fatalf("token consumed despite unreachable upstream, Used = %d", got.Used)
	}
}
