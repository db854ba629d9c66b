package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository stores user reports filed through the in-game bot.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Insert files a report, attaching the reported user's recent chat lines.
func (r *ReportRepository) Insert(ctx context.Context, fromID, toID int32, reason, chatlog string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reports (from_uid, to_uid, reason, chatlog, time) VALUES ($1, $2, $3, $4, $5)`,
		fromID, toID, reason, chatlog, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("inserting report of %d: %w", toID, err)
	}
	return nil
}
