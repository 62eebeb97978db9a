// AngelaMos | 2026
// entity_test.go

package token_test

import (
	"testing"
	"time"

	"github.com/angelamos/gatekeeper/internal/token"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestTokenActive(t *testing.T) {
	past := timePtr(time.Now().Add(-time.Hour))
	future := timePtr(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token token.Token
		want  bool
	}{
		{
			name:  "fresh unlimited token",
			token: token.Token{Name: "FreshToken"},
			want:  true,
		},
		{
			name:  "disabled token",
			token: token.Token{Name: "DisabledToken", Disabled: true},
			want:  false,
		},
		{
			name: "expired token",
			token: token.Token{
				Name:           "ExpiredToken",
				ExpirationDate: past,
			},
			want: false,
		},
		{
			name: "future expiry still active",
			token: token.Token{
				Name:           "FutureToken",
				ExpirationDate: future,
			},
			want: true,
		},
		{
			name: "exhausted token",
			token: token.Token{
				Name:     "ExhaustedToken",
				MaxUsage: 2,
				Used:     2,
			},
			want: false,
		},
		{
			name: "unlimited usage never exhausts",
			token: token.Token{
				Name:     "UnlimitedToken",
				MaxUsage: 0,
				Used:     10000,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Active(); got != tt.want {
				t.Fatalf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenUse(t *testing.T) {
	tok := token.Token{Name: "UseMe", MaxUsage: 2}

	if !tok.Use("10.0.0.1") {
		t.Fatal("Use() on active token returned false")
	}
	if tok.Used != 1 {
		t.Fatalf("Used = %d, want 1", tok.Used)
	}
	if len(tok.IPs) != 1 || tok.IPs[0] != "10.0.0.1" {
		t.Fatalf("IPs = %v, want [10.0.0.1]", tok.IPs)
	}

	if !tok.Use("") {
		t.Fatal("Use() with empty ip returned false")
	}
	if len(tok.IPs) != 1 {
		t.Fatalf("empty ip must not be recorded, IPs = %v", tok.IPs)
	}

	if tok.Use("10.0.0.2") {
		t.Fatal("Use() on exhausted token returned true")
	}
	if tok.Used != 2 {
		t.Fatalf("exhausted Use() must not increment, Used = %d", tok.Used)
	}
}

func TestTokenDisable(t *testing.T) {
	tok := token.Token{Name: "DisableMe"}

	if !tok.Disable() {
		t.Fatal("first Disable() returned false")
	}
	if tok.Disable() {
		t.Fatal("second Disable() returned true")
	}
	if tok.Active() {
		t.Fatal("disabled token reports active")
	}
}
