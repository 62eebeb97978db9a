// AngelaMos | 2026
// validate.go

package registration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/angelamos/gatekeeper/internal/config"
)

const (
	usernameMaxLength = 200
	passwordMaxLength = 255
)

// tokenPattern matches the generated name shape, e.g. "DoubleWizardSky".
var tokenPattern = regexp.MustCompile(`^([A-Z][a-z]+)+$`)

// tokenInvalidMessage answers malformed, unknown and inactive tokens
// alike so the public surface never reveals which one it was.
const tokenInvalidMessage = "token is invalid"

// Validator checks registration form fields against the homeserver's
// local-part grammar and the operator's policy. All patterns are compiled
// once at startup; a bad pattern is a configuration error, not a request
// error.
type Validator struct {
	usernamePattern   *regexp.Regexp
	denylist          []*regexp.Regexp
	allowlist         []*regexp.Regexp
	passwordMinLength int
}

func NewValidator(
	cfg config.RegistrationConfig,
	serverName string,
) (*Validator, error) {
	usernamePattern, err := regexp.Compile(
		`^@?[a-zA-Z_\-=\.\/0-9]+(:` + regexp.QuoteMeta(serverName) + `)?$`,
	)
	if err != nil {
		return nil, fmt.Errorf("compile username pattern: %w", err)
	}

	denylist, err := compilePatterns(cfg.UsernameDenylist)
	if err != nil {
		return nil, fmt.Errorf("compile denylist: %w", err)
	}

	allowlist, err := compilePatterns(cfg.UsernameAllowlist)
	if err != nil {
		return nil, fmt.Errorf("compile allowlist: %w", err)
	}

	return &Validator{
		usernamePattern:   usernamePattern,
		denylist:          denylist,
		allowlist:         allowlist,
		passwordMinLength: cfg.PasswordMinLength,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Validate evaluates every rule and reports all violations together.
// Token liveness is checked separately by the service; only the token's
// shape is checked here.
func (v *Validator) Validate(req RegisterRequest) FieldErrors {
	errs := make(FieldErrors)

	v.validateUsername(req.Username, errs)
	v.validatePassword(req.Password, req.Confirm, errs)

	if !tokenPattern.MatchString(req.Token) {
		errs.Add("token", tokenInvalidMessage)
	}

	return errs
}

func (v *Validator) validateUsername(username string, errs FieldErrors) {
	if len(username) < 1 || len(username) > usernameMaxLength {
		errs.Add("username", fmt.Sprintf(
			"username must be between 1 and %d characters long",
			usernameMaxLength,
		))
		return
	}

	if !v.usernamePattern.MatchString(username) {
		errs.Add("username", fmt.Sprintf(
			"username doesn't follow pattern: %q", v.usernamePattern,
		))
		return
	}

	localpart := Localpart(username)

	for _, re := range v.denylist {
		if re.MatchString(localpart) {
			errs.Add("username", "username is not allowed")
			return
		}
	}

	if len(v.allowlist) > 0 {
		allowed := false
		for _, re := range v.allowlist {
			if re.MatchString(localpart) {
				allowed = true
				break
			}
		}
		if !allowed {
			errs.Add("username", "username is not allowed")
		}
	}
}

func (v *Validator) validatePassword(password, confirm string, errs FieldErrors) {
	if len(password) < v.passwordMinLength ||
		len(password) > passwordMaxLength {
		errs.Add("password", fmt.Sprintf(
			"password should be between %d and %d chars long",
			v.passwordMinLength,
			passwordMaxLength,
		))
	}

	if password != confirm {
		errs.Add("confirm", "passwords must match")
	}
}

// Localpart strips the sigil and the domain suffix from a federated
// identifier: "@alice:example.org" becomes "alice".
func Localpart(username string) string {
	local := username
	if i := strings.Index(local, ":"); i >= 0 {
		local = local[:i]
	}
	if i := strings.LastIndex(local, "@"); i >= 0 {
		local = local[i+1:]
	}
	return local
}
