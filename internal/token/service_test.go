// AngelaMos | 2026
// service_test.go

package token_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/angelamos/gatekeeper/internal/core"
	"github.com/angelamos/gatekeeper/internal/token"
)

func newTestStore(t *testing.T) *token.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return token.NewStore(token.NewMemoryRepository(), logger, 3)
}

func TestStoreNew(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.New(ctx, nil, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !namePattern.MatchString(created.Name) {
		t.Fatalf("generated name %q does not match %v", created.Name, namePattern)
	}
	if created.Used != 0 || created.Disabled {
		t.Fatalf("fresh token has used=%d disabled=%v", created.Used, created.Disabled)
	}
	if !created.Active() {
		t.Fatal("fresh token is not active")
	}
}

func TestStoreNewRejectsNegativeMaxUsage(t *testing.T) {
	store := newTestStore(t)

	_, err := store.New(context.Background(), nil, -1)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("New(maxUsage=-1) error = %v, want ErrInvalidInput", err)
	}
}

func TestStoreIsActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active, err := store.IsActive(ctx, "NoSuchToken")
	if err != nil {
		t.Fatalf("IsActive(unknown) error: %v", err)
	}
	if active {
		t.Fatal("unknown token reported active")
	}

	created, err := store.New(ctx, nil, 1)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	active, err = store.IsActive(ctx, created.Name)
	if err != nil {
		t.Fatalf("IsActive() error: %v", err)
	}
	if !active {
		t.Fatal("fresh token reported inactive")
	}

	if _, err := store.Disable(ctx, created.Name); err != nil {
		t.Fatalf("Disable() error: %v", err)
	}

	active, err = store.IsActive(ctx, created.Name)
	if err != nil {
		t.Fatalf("IsActive() error: %v", err)
	}
	if active {
		t.Fatal("disabled token reported active")
	}
}

func TestStoreRedeem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.New(ctx, nil, 1)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	redeemed, err := store.Redeem(ctx, created.Name, "203.0.113.7")
	if err != nil {
		t.Fatalf("Redeem() error: %v", err)
	}
	if !redeemed {
		t.Fatal("first Redeem() returned false")
	}

	redeemed, err = store.Redeem(ctx, created.Name, "203.0.113.8")
	if err != nil {
		t.Fatalf("second Redeem() error: %v", err)
	}
	if redeemed {
		t.Fatal("exhausted token was redeemed again")
	}

	got, err := store.Get(ctx, created.Name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Used != 1 {
		t.Fatalf("Used = %d, want 1", got.Used)
	}
	if len(got.IPs) != 1 || got.IPs[0] != "203.0.113.7" {
		t.Fatalf("IPs = %v, want [203.0.113.7]", got.IPs)
	}
}

func TestStoreRedeemConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.New(ctx, nil, 1)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			redeemed, err := store.Redeem(ctx, created.Name, "")
			if err != nil {
				t.Errorf("Redeem() error: %v", err)
				return
			}
			results <- redeemed
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for redeemed := range results {
		if redeemed {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("%d concurrent redemptions succeeded, want exactly 1", successes)
	}

	got, err := store.Get(ctx, created.Name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Used != 1 {
		t.Fatalf("Used = %d after concurrent redemption, want 1", got.Used)
	}
}

func TestStoreUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.New(ctx, nil, 5)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	expiration := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	maxUsage := 10
	used := 0

	updated, err := store.Update(ctx, created.Name, token.UpdateTokenRequest{
		ExpirationDate: &expiration,
		MaxUsage:       &maxUsage,
		Used:           &used,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.MaxUsage != 10 {
		t.Fatalf("MaxUsage = %d, want 10", updated.MaxUsage)
	}
	if updated.ExpirationDate == nil {
		t.Fatal("ExpirationDate not set")
	}

	badDate := "not-a-date"
	_, err = store.Update(ctx, created.Name, token.UpdateTokenRequest{
		ExpirationDate: &badDate,
	})
	if !errors.Is(err, core.ErrDateFormat) {
		t.Fatalf("Update(bad date) error = %v, want ErrDateFormat", err)
	}

	_, err = store.Update(ctx, "NoSuchToken", token.UpdateTokenRequest{})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestStoreUpdateClearsExpiration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	created, err := store.New(ctx, &past, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if created.Active() {
		t.Fatal("token with past expiry is active")
	}

	empty := ""
	updated, err := store.Update(ctx, created.Name, token.UpdateTokenRequest{
		ExpirationDate: &empty,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.ExpirationDate != nil {
		t.Fatalf("ExpirationDate = %v, want nil", updated.ExpirationDate)
	}
	if !updated.Active() {
		t.Fatal("token is inactive after clearing expiry")
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.New(ctx, nil, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := store.Delete(ctx, created.Name); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if err := store.Delete(ctx, created.Name); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}

	if _, err := store.Get(ctx, created.Name); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		if _, err := store.New(ctx, nil, 0); err != nil {
			t.Fatalf("New() error: %v", err)
		}
	}

	tokens, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("List() returned %d tokens, want 3", len(tokens))
	}
}
