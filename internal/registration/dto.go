// AngelaMos | 2026
// dto.go

package registration

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
	Token    string `json:"token"`
}

type SuccessResponse struct {
	AccessToken string `json:"access_token"`
	HomeServer  string `json:"home_server"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	StatusCode  int    `json:"status_code"`
}

// FieldErrors aggregates every form violation by field so a single
// response can report them all at once.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}
