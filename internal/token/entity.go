// AngelaMos | 2026
// entity.go

package token

import (
	"time"
)

// Token is a single invitation grant. Name doubles as the primary key and
// the bearer credential presented by registrants; it never changes after
// creation.
type Token struct {
	Name           string     `db:"name"`
	ExpirationDate *time.Time `db:"expiration_date"`
	MaxUsage       int        `db:"max_usage"`
	Used           int        `db:"used"`
	Disabled       bool       `db:"disabled"`
	CreatedAt      time.Time  `db:"created_at"`

	// IPs holds addresses recorded at redemption time. Loaded explicitly
	// through Repository.AssociatedIPs, never as part of a row scan.
	IPs []string `db:"-"`
}

// Active reports whether the token may still be redeemed: not disabled,
// not expired, and not exhausted. MaxUsage of zero means unlimited.
func (t *Token) Active() bool {
	return !t.Disabled && !t.Expired() && !t.Exhausted()
}

func (t *Token) Expired() bool {
	return t.ExpirationDate != nil && t.ExpirationDate.Before(time.Now())
}

func (t *Token) Exhausted() bool {
	return t.MaxUsage != 0 && t.Used >= t.MaxUsage
}

// Use consumes one unit of the token's remaining usage. It returns false
// without side effects when the token is not active. Callers that share
// tokens across requests must serialize through Store.Redeem instead.
func (t *Token) Use(ip string) bool {
	if !t.Active() {
		return false
	}

	t.Used++
	if ip != "" {
		t.IPs = append(t.IPs, ip)
	}
	return true
}

// Disable permanently deactivates the token. Returns false if it was
// already disabled; there is no re-enable.
func (t *Token) Disable() bool {
	if t.Disabled {
		return false
	}

	t.Disabled = true
	return true
}
