package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository reads and writes the bancho_settings key/value rows.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetInt returns the integer value of a setting, 0 when unset.
func (r *SettingsRepository) GetInt(ctx context.Context, name string) (int32, error) {
	var v int32
	err := r.pool.QueryRow(ctx,
		`SELECT value_int FROM bancho_settings WHERE name = $1`, name).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying setting %q: %w", name, err)
	}
	return v, nil
}

// GetString returns the string value of a setting, "" when unset.
func (r *SettingsRepository) GetString(ctx context.Context, name string) (string, error) {
	var v string
	err := r.pool.QueryRow(ctx,
		`SELECT value_string FROM bancho_settings WHERE name = $1`, name).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("querying setting %q: %w", name, err)
	}
	return v, nil
}

// SetInt upserts the integer value of a setting.
func (r *SettingsRepository) SetInt(ctx context.Context, name string, value int32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bancho_settings (name, value_int) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET value_int = $2`,
		name, value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	return nil
}

// SetString upserts the string value of a setting.
func (r *SettingsRepository) SetString(ctx context.Context, name, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bancho_settings (name, value_string) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET value_string = $2`,
		name, value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	return nil
}
