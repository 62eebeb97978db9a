// AngelaMos | 2026
// repository.go

package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/gatekeeper/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *Token) error
	GetByName(ctx context.Context, name string) (*Token, error)
	List(ctx context.Context) ([]Token, error)
	Update(ctx context.Context, token *Token) error
	// Redeem atomically increments the usage counter iff the token is
	// active at the time of the update. This is the concurrency guard for
	// the last-use race; callers must not read-modify-write instead.
	Redeem(ctx context.Context, name string) (bool, error)
	Disable(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	AddIP(ctx context.Context, name, address string) error
	AssociatedIPs(ctx context.Context, name string) ([]string, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO tokens (name, expiration_date, max_usage, used, disabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.Name,
		token.ExpirationDate,
		token.MaxUsage,
		token.Used,
		token.Disabled,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create token: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create token: %w", err)
	}

	return nil
}

func (r *repository) GetByName(
	ctx context.Context,
	name string,
) (*Token, error) {
	query := `
		SELECT name, expiration_date, max_usage, used, disabled, created_at
		FROM tokens
		WHERE name = $1`

	var token Token
	err := r.db.GetContext(ctx, &token, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	return &token, nil
}

func (r *repository) List(ctx context.Context) ([]Token, error) {
	query := `
		SELECT name, expiration_date, max_usage, used, disabled, created_at
		FROM tokens
		ORDER BY created_at`

	var tokens []Token
	if err := r.db.SelectContext(ctx, &tokens, query); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	return tokens, nil
}

func (r *repository) Update(ctx context.Context, token *Token) error {
	query := `
		UPDATE tokens
		SET expiration_date = $2, max_usage = $3, used = $4, disabled = $5
		WHERE name = $1`

	result, err := r.db.ExecContext(ctx, query,
		token.Name,
		token.ExpirationDate,
		token.MaxUsage,
		token.Used,
		token.Disabled,
	)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Redeem(ctx context.Context, name string) (bool, error) {
	query := `
		UPDATE tokens
		SET used = used + 1
		WHERE name = $1
		  AND disabled = FALSE
		  AND (expiration_date IS NULL OR expiration_date > NOW())
		  AND (max_usage = 0 OR used < max_usage)`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return false, fmt.Errorf("redeem token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("redeem token: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) Disable(ctx context.Context, name string) (bool, error) {
	query := `
		UPDATE tokens
		SET disabled = TRUE
		WHERE name = $1 AND disabled = FALSE`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return false, fmt.Errorf("disable token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("disable token: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM tokens WHERE name = $1`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) AddIP(ctx context.Context, name, address string) error {
	query := `
		WITH ip AS (
			INSERT INTO ips (address)
			VALUES ($2)
			ON CONFLICT (address) DO UPDATE SET address = EXCLUDED.address
			RETURNING id
		)
		INSERT INTO token_ips (token_name, ip_id)
		SELECT $1, id FROM ip
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, name, address); err != nil {
		return fmt.Errorf("record ip: %w", err)
	}

	return nil
}

func (r *repository) AssociatedIPs(
	ctx context.Context,
	name string,
) ([]string, error) {
	query := `
		SELECT i.address
		FROM ips i
		JOIN token_ips ti ON ti.ip_id = i.id
		WHERE ti.token_name = $1
		ORDER BY i.address`

	var addresses []string
	if err := r.db.SelectContext(ctx, &addresses, query, name); err != nil {
		return nil, fmt.Errorf("get associated ips: %w", err)
	}

	return addresses, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
