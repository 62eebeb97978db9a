// AngelaMos | 2026
// dto.go

package token

import (
	"time"
)

type CreateTokenRequest struct {
	ExpirationDate *string `json:"expiration_date" validate:"omitempty,max=64"`
	MaxUsage       *int    `json:"max_usage"       validate:"omitempty,min=0"`
}

type UpdateTokenRequest struct {
	ExpirationDate *string `json:"expiration_date" validate:"omitempty,max=64"`
	MaxUsage       *int    `json:"max_usage"       validate:"omitempty,min=0"`
	Used           *int    `json:"used"            validate:"omitempty,min=0"`
	Disabled       *bool   `json:"disabled"`
}

type TokenResponse struct {
	Name           string   `json:"name"`
	Used           int      `json:"used"`
	ExpirationDate *string  `json:"expiration_date"`
	MaxUsage       int      `json:"max_usage"`
	IPs            []string `json:"ips"`
	Disabled       bool     `json:"disabled"`
	Active         bool     `json:"active"`
}

func ToTokenResponse(t *Token) TokenResponse {
	var expiration *string
	if t.ExpirationDate != nil {
		formatted := t.ExpirationDate.Format(time.RFC3339)
		expiration = &formatted
	}

	ips := t.IPs
	if ips == nil {
		ips = []string{}
	}

	return TokenResponse{
		Name:           t.Name,
		Used:           t.Used,
		ExpirationDate: expiration,
		MaxUsage:       t.MaxUsage,
		IPs:            ips,
		Disabled:       t.Disabled,
		Active:         t.Active(),
	}
}

func ToTokenResponseList(tokens []Token) []TokenResponse {
	responses := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		responses = append(responses, ToTokenResponse(&tokens[i]))
	}
	return responses
}

// ParseExpiration accepts RFC 3339 or a bare YYYY-MM-DD date.
func ParseExpiration(value string) (*time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
