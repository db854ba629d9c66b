package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsTable selects which scoreboard a stats query reads.
type StatsTable string

// The three scoreboards: vanilla, relax and autopilot.
const (
	StatsVanilla   StatsTable = "users_stats"
	StatsRelax     StatsTable = "rx_stats"
	StatsAutopilot StatsTable = "ap_stats"
)

// StatsRow is one user's totals for a single mode on one scoreboard.
// Accuracy is stored as a 0..100 percentage.
type StatsRow struct {
	RankedScore int64
	Accuracy    float64
	Playcount   int32
	TotalScore  int64
	PP          int32
}

// StatsRepository reads the per-mode stats tables.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// modeSuffix maps a play mode to its stats column suffix.
func modeSuffix(mode uint8) string {
	switch mode {
	case 1:
		return "taiko"
	case 2:
		return "ctb"
	case 3:
		return "mania"
	default:
		return "std"
	}
}

// Get returns the user's totals for the given mode from the given
// scoreboard. Returns nil, nil if the user has no stats row.
func (r *StatsRepository) Get(ctx context.Context, userID int32, mode uint8, table StatsTable) (*StatsRow, error) {
	suffix := modeSuffix(mode)
	query := fmt.Sprintf(
		`SELECT ranked_score_%[1]s, avg_accuracy_%[1]s, playcount_%[1]s, total_score_%[1]s, pp_%[1]s
		 FROM %[2]s WHERE id = $1`, suffix, table)

	var row StatsRow
	err := r.pool.QueryRow(ctx, query, userID).
		Scan(&row.RankedScore, &row.Accuracy, &row.Playcount, &row.TotalScore, &row.PP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying %s of user %d: %w", table, userID, err)
	}
	return &row, nil
}
