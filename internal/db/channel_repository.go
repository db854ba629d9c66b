package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRow is one permanent chat channel definition.
type ChannelRow struct {
	Name        string
	Description string
	PublicRead  bool
	PublicWrite bool
}

// ChannelRepository reads the permanent channel list.
type ChannelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

// LoadAll returns every configured channel.
func (r *ChannelRepository) LoadAll(ctx context.Context) ([]ChannelRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, description, public_read, public_write FROM bancho_channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	result := make([]ChannelRow, 0, 8)
	for rows.Next() {
		var ch ChannelRow
		var read, write int16
		if err := rows.Scan(&ch.Name, &ch.Description, &read, &write); err != nil {
			return nil, fmt.Errorf("scanning channel row: %w", err)
		}
		ch.PublicRead = read != 0
		ch.PublicWrite = write != 0
		result = append(result, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel rows: %w", err)
	}
	return result, nil
}
