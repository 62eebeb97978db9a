// AngelaMos | 2026
// service.go

// Package registration implements the public admission flow: validate
// the submitted form, create the account upstream, then consume a use of
// the invitation token.
package registration

import (
	"context"
	"log/slog"

	"github.com/angelamos/gatekeeper/internal/synapse"
	"github.com/angelamos/gatekeeper/internal/token"
)

type Service struct {
	store     *token.Store
	client    *synapse.Client
	validator *Validator
	logger    *slog.Logger
	ipLogging bool
}

func NewService(
	store *token.Store,
	client *synapse.Client,
	validator *Validator,
	logger *slog.Logger,
	ipLogging bool,
) *Service {
	return &Service{
		store:     store,
		client:    client,
		validator: validator,
		logger:    logger,
		ipLogging: ipLogging,
	}
}

// Register runs the full admission sequence. Field violations come back
// as FieldErrors with a nil error; the token is only consumed after the
// homeserver has confirmed the account, so upstream failures leave it
// untouched.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	clientIP string,
) (*SuccessResponse, FieldErrors, error) {
	fieldErrs := s.validator.Validate(req)

	// Liveness is checked even when the token's shape already failed, so
	// the caller sees the same message for both. Unknown and inactive
	// tokens are deliberately indistinguishable here.
	if _, reported := fieldErrs["token"]; !reported {
		active, err := s.store.IsActive(ctx, req.Token)
		if err != nil {
			return nil, nil, err
		}
		if !active {
			fieldErrs.Add("token", tokenInvalidMessage)
		}
	}

	if !fieldErrs.Empty() {
		return nil, fieldErrs, nil
	}

	localpart := Localpart(req.Username)

	account, err := s.client.RegisterAccount(ctx, localpart, req.Password, false)
	if err != nil {
		return nil, nil, err
	}

	ip := ""
	if s.ipLogging {
		ip = clientIP
	}

	redeemed, err := s.store.Redeem(ctx, req.Token, ip)
	if err != nil || !redeemed {
		// The account exists upstream either way; surface the anomaly
		// but report success to the user.
		s.logger.Warn("account created but token was not redeemed",
			"token", req.Token,
			"user_id", account.UserID,
			"redeemed", redeemed,
			"error", err,
		)
	}

	s.logger.Info("registration succeeded",
		"user_id", account.UserID,
		"token", req.Token,
	)

	return &SuccessResponse{
		AccessToken: account.AccessToken,
		HomeServer:  account.HomeServer,
		UserID:      account.UserID,
		Status:      "success",
		StatusCode:  200,
	}, nil, nil
}
