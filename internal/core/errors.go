// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrDateFormat   = errors.New("invalid date format")

	ErrUpstreamUnreachable = errors.New("homeserver unreachable")
	ErrUpstreamConfig      = errors.New("homeserver configuration error")
	ErrUpstreamFailure     = errors.New("homeserver request failed")
)

// Wire-level error codes, following the upstream protocol's errcode grammar.
const (
	CodeBadUserRequest = "MR_BAD_USER_REQUEST"
	CodeBadSecret      = "MR_BAD_SECRET"
	CodeTokenNotFound  = "MR_TOKEN_NOT_FOUND"
	CodeBadDateFormat  = "MR_BAD_DATE_FORMAT"
	CodeRateLimited    = "MR_RATE_LIMITED"
	CodeInternal       = "MR_INTERNAL_ERROR"
)
