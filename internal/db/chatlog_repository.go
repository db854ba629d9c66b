package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatLogRepository пишет историю чата: личные сообщения в chat_logs,
// каналы в chat_chan_logs.
type ChatLogRepository struct {
	pool *pgxpool.Pool
}

// NewChatLogRepository создаёт новый ChatLogRepository.
func NewChatLogRepository(pool *pgxpool.Pool) *ChatLogRepository {
	return &ChatLogRepository{pool: pool}
}

// LogPrivate записывает личное сообщение.
func (r *ChatLogRepository) LogPrivate(ctx context.Context, fromID, toID int32, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_logs (user_id, target_id, content) VALUES ($1, $2, $3)`,
		fromID, toID, content)
	if err != nil {
		return fmt.Errorf("logging private message from %d: %w", fromID, err)
	}
	return nil
}

// LogChannel записывает сообщение в канале.
func (r *ChatLogRepository) LogChannel(ctx context.Context, fromID int32, channel, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_chan_logs (user_id, target_chan, content) VALUES ($1, $2, $3)`,
		fromID, channel, content)
	if err != nil {
		return fmt.Errorf("logging channel message from %d: %w", fromID, err)
	}
	return nil
}
