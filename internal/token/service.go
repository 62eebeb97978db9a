// AngelaMos | 2026
// service.go

package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angelamos/gatekeeper/internal/core"
)

// Store owns the collection of invitation tokens. The repository is the
// single source of truth; the store never caches rows between calls, so
// every read reflects mutations made by other processes.
type Store struct {
	repo      Repository
	logger    *slog.Logger
	wordCount int
}

func NewStore(repo Repository, logger *slog.Logger, wordCount int) *Store {
	if wordCount < 1 {
		wordCount = defaultWordCount
	}

	return &Store{
		repo:      repo,
		logger:    logger,
		wordCount: wordCount,
	}
}

const nameCollisionRetries = 10

// New creates and persists a token with a freshly generated name. Name
// collisions are retried silently; with a three-word name space they are
// astronomically unlikely to exhaust the retry budget.
func (s *Store) New(
	ctx context.Context,
	expirationDate *time.Time,
	maxUsage int,
) (*Token, error) {
	if maxUsage < 0 {
		return nil, fmt.Errorf("new token: %w", core.ErrInvalidInput)
	}

	for range nameCollisionRetries {
		token := &Token{
			Name:           GenerateName(s.wordCount),
			ExpirationDate: expirationDate,
			MaxUsage:       maxUsage,
		}

		err := s.repo.Create(ctx, token)
		if errors.Is(err, core.ErrDuplicateKey) {
			s.logger.Debug("token name collision, retrying",
				"name", token.Name,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("token created",
			"name", token.Name,
			"max_usage", token.MaxUsage,
			"expiration_date", token.ExpirationDate,
		)
		return token, nil
	}

	return nil, fmt.Errorf("new token: name space exhausted after %d retries",
		nameCollisionRetries)
}

func (s *Store) Get(ctx context.Context, name string) (*Token, error) {
	token, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	ips, err := s.repo.AssociatedIPs(ctx, name)
	if err != nil {
		return nil, err
	}
	token.IPs = ips

	return token, nil
}

func (s *Store) List(ctx context.Context) ([]Token, error) {
	return s.repo.List(ctx)
}

// IsActive reports whether the named token may currently be redeemed.
// Unknown names are inactive; callers cannot distinguish the two.
func (s *Store) IsActive(ctx context.Context, name string) (bool, error) {
	token, err := s.repo.GetByName(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return token.Active(), nil
}

// Redeem consumes one use of the token, recording the client address when
// provided. The increment is a conditional update at the persistence
// layer, so two racing redemptions of a token with one use left cannot
// both succeed.
func (s *Store) Redeem(ctx context.Context, name, ip string) (bool, error) {
	redeemed, err := s.repo.Redeem(ctx, name)
	if err != nil {
		return false, err
	}
	if !redeemed {
		return false, nil
	}

	if ip != "" {
		if err := s.repo.AddIP(ctx, name, ip); err != nil {
			// The redemption already happened; losing the IP record is
			// not worth failing the registration over.
			s.logger.Warn("failed to record ip for token",
				"name", name,
				"error", err,
			)
		}
	}

	s.logger.Info("token redeemed", "name", name)
	return true, nil
}

func (s *Store) Disable(ctx context.Context, name string) (bool, error) {
	disabled, err := s.repo.Disable(ctx, name)
	if err != nil {
		return false, err
	}

	if disabled {
		s.logger.Info("token disabled", "name", name)
	}
	return disabled, nil
}

// Update overwrites the administrative fields present in the request.
// This is the only path that may decrease Used or resurrect an expired
// token; Name and the IP associations are never writable.
func (s *Store) Update(
	ctx context.Context,
	name string,
	req UpdateTokenRequest,
) (*Token, error) {
	token, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.ExpirationDate != nil {
		if *req.ExpirationDate == "" {
			token.ExpirationDate = nil
		} else {
			parsed, err := ParseExpiration(*req.ExpirationDate)
			if err != nil {
				return nil, fmt.Errorf(
					"update token: %w", core.ErrDateFormat,
				)
			}
			token.ExpirationDate = parsed
		}
	}
	if req.MaxUsage != nil {
		token.MaxUsage = *req.MaxUsage
	}
	if req.Used != nil {
		token.Used = *req.Used
	}
	if req.Disabled != nil {
		token.Disabled = *req.Disabled
	}

	if err := s.repo.Update(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("token updated", "name", name)
	return token, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.logger.Info("token deleted", "name", name)
	return nil
}
