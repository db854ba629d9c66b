package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BeatmapRow is the slice of a beatmap the chat bot works with.
type BeatmapRow struct {
	BeatmapID    int32
	BeatmapsetID int32
	MD5          string
	SongName     string
	Ranked       int32
	MaxCombo     int32
}

// BeatmapRepository reads and moderates the beatmaps table.
type BeatmapRepository struct {
	pool *pgxpool.Pool
}

// NewBeatmapRepository creates a new BeatmapRepository.
func NewBeatmapRepository(pool *pgxpool.Pool) *BeatmapRepository {
	return &BeatmapRepository{pool: pool}
}

// GetByID returns the beatmap with the given id. Returns nil, nil if absent.
func (r *BeatmapRepository) GetByID(ctx context.Context, beatmapID int32) (*BeatmapRow, error) {
	var b BeatmapRow
	err := r.pool.QueryRow(ctx,
		`SELECT beatmap_id, beatmapset_id, beatmap_md5, song_name, ranked, max_combo
		 FROM beatmaps WHERE beatmap_id = $1`, beatmapID).
		Scan(&b.BeatmapID, &b.BeatmapsetID, &b.MD5, &b.SongName, &b.Ranked, &b.MaxCombo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying beatmap %d: %w", beatmapID, err)
	}
	return &b, nil
}

// SetRankedStatus updates the ranked status of one map or a whole set,
// freezing it against future sync and recording who ranked it.
func (r *BeatmapRepository) SetRankedStatus(ctx context.Context, wholeSet bool, id, status, rankedBy int32) error {
	column := "beatmap_id"
	if wholeSet {
		column = "beatmapset_id"
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE beatmaps SET ranked = $1, ranked_status_freezed = 1, rankedby = $2
		 WHERE `+column+` = $3`,
		status, rankedBy, id)
	if err != nil {
		return fmt.Errorf("updating ranked status of %s %d: %w", column, id, err)
	}
	return nil
}

// MD5sForSet returns the digests of every difficulty in a set, used to
// invalidate score-server caches after a rank change.
func (r *BeatmapRepository) MD5sForSet(ctx context.Context, beatmapsetID int32) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT beatmap_md5 FROM beatmaps WHERE beatmapset_id = $1`, beatmapsetID)
	if err != nil {
		return nil, fmt.Errorf("querying md5s of set %d: %w", beatmapsetID, err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var md5 string
		if err := rows.Scan(&md5); err != nil {
			return nil, fmt.Errorf("scanning beatmap md5 row: %w", err)
		}
		result = append(result, md5)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating beatmap md5 rows: %w", err)
	}
	return result, nil
}
