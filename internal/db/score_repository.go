package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoreTable selects which score table a query reads.
type ScoreTable string

// The three score tables: vanilla, relax and autopilot.
const (
	ScoresVanilla   ScoreTable = "scores"
	ScoresRelax     ScoreTable = "scores_relax"
	ScoresAutopilot ScoreTable = "scores_ap"
)

// ScoreRow is a submitted score joined with its beatmap, as used by the
// bot's last-score report.
type ScoreRow struct {
	BeatmapID   int32
	SongName    string
	MapMaxCombo int32 // full combo of the map itself

	PlayMode  uint8
	Mods      int32
	Accuracy  float64
	Count300  int32
	Count100  int32
	Count50   int32
	CountGeki int32
	CountKatu int32
	CountMiss int32
	MaxCombo  int32
	Completed int32
	PP        float64
}

// ScoreRepository reads submitted scores.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// LastByUser returns the user's most recent score from the given table,
// joined with the beatmap it was set on. Returns nil, nil if the user
// has not submitted anything.
func (r *ScoreRepository) LastByUser(ctx context.Context, userID int32, table ScoreTable) (*ScoreRow, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(b.beatmap_id, 0), COALESCE(b.song_name, ''), COALESCE(b.max_combo, 0),
		        s.play_mode, s.mods, s.accuracy,
		        s."300_count", s."100_count", s."50_count",
		        s.gekis_count, s.katus_count, s.misses_count,
		        s.max_combo, s.completed, s.pp
		 FROM %s s
		 LEFT JOIN beatmaps b ON b.beatmap_md5 = s.beatmap_md5
		 WHERE s.userid = $1
		 ORDER BY s.id DESC LIMIT 1`, table)

	var row ScoreRow
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&row.BeatmapID, &row.SongName, &row.MapMaxCombo,
		&row.PlayMode, &row.Mods, &row.Accuracy,
		&row.Count300, &row.Count100, &row.Count50,
		&row.CountGeki, &row.CountKatu, &row.CountMiss,
		&row.MaxCombo, &row.Completed, &row.PP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying last score of %d: %w", userID, err)
	}
	return &row, nil
}
