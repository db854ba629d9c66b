package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStatusRow — пользовательский статус, показываемый ботом.
type UserStatusRow struct {
	UserID  int32
	Status  string
	Enabled bool
}

// StatusRepository хранит пользовательские статусы в user_statuses.
type StatusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository создаёт новый StatusRepository.
func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

// LoadAll загружает все статусы для кеша.
func (r *StatusRepository) LoadAll(ctx context.Context) ([]UserStatusRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, status, enabled FROM user_statuses`)
	if err != nil {
		return nil, fmt.Errorf("querying user statuses: %w", err)
	}
	defer rows.Close()

	result := make([]UserStatusRow, 0, 32)
	for rows.Next() {
		var row UserStatusRow
		var enabled int16
		if err := rows.Scan(&row.UserID, &row.Status, &enabled); err != nil {
			return nil, fmt.Errorf("scanning user status row: %w", err)
		}
		row.Enabled = enabled != 0
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user status rows: %w", err)
	}
	return result, nil
}

// Upsert записывает статус пользователя, перезаписывая существующий.
func (r *StatusRepository) Upsert(ctx context.Context, userID int32, status string, enabled bool) error {
	en := 0
	if enabled {
		en = 1
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_statuses (user_id, status, enabled) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET status = $2, enabled = $3`,
		userID, status, en)
	if err != nil {
		return fmt.Errorf("upserting status of %d: %w", userID, err)
	}
	return nil
}
