// AngelaMos | 2026
// security.go

package core

import (
	"crypto/subtle"
)

// SecureCompare reports whether two secrets are equal without leaking
// where they differ through timing.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
