package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/banchogo/internal/model"
)

// HardwareRepository tracks the hardware identity sets clients log in
// with, used for account verification and multiaccount detection.
type HardwareRepository struct {
	pool *pgxpool.Pool
}

// NewHardwareRepository creates a new HardwareRepository.
func NewHardwareRepository(pool *pgxpool.Pool) *HardwareRepository {
	return &HardwareRepository{pool: pool}
}

// HasVerified reports whether the user has at least one hardware set
// marked as used for account activation.
func (r *HardwareRepository) HasVerified(ctx context.Context, userID int32) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM hw_user WHERE userid = $1 AND activated = 1 LIMIT 1`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying verified hardware of %d: %w", userID, err)
	}
	return true, nil
}

// Log upserts the hardware set for this login, bumping its seen counter.
// When activation is set the row is marked as the one that verified the
// account.
func (r *HardwareRepository) Log(ctx context.Context, userID int32, hw model.ClientHashes, activation bool) error {
	activated := 0
	if activation {
		activated = 1
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO hw_user (userid, mac, unique_id, disk_id, occurencies, activated)
		 VALUES ($1, $2, $3, $4, 1, $5)
		 ON CONFLICT (userid, mac, unique_id, disk_id)
		 DO UPDATE SET occurencies = hw_user.occurencies + 1, activated = GREATEST(hw_user.activated, $5)`,
		userID, hw.MACMD5, hw.UniqueMD5, hw.DiskMD5, activated)
	if err != nil {
		return fmt.Errorf("logging hardware of %d: %w", userID, err)
	}
	return nil
}

// ActivatedMatchOwner returns the id of another user whose activated
// hardware set matches this one, or 0 when the hardware is unseen.
// Wine clients match on the unique id alone.
func (r *HardwareRepository) ActivatedMatchOwner(ctx context.Context, userID int32, hw model.ClientHashes) (int32, error) {
	var (
		owner int32
		err   error
	)
	if hw.RunningUnderWine() {
		err = r.pool.QueryRow(ctx,
			`SELECT userid FROM hw_user
			 WHERE unique_id = $1 AND userid != $2 AND activated = 1 LIMIT 1`,
			hw.UniqueMD5, userID).Scan(&owner)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT userid FROM hw_user
			 WHERE mac = $1 AND unique_id = $2 AND disk_id = $3 AND userid != $4 AND activated = 1
			 LIMIT 1`,
			hw.MACMD5, hw.UniqueMD5, hw.DiskMD5, userID).Scan(&owner)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("matching hardware of %d: %w", userID, err)
	}
	return owner, nil
}

// BannedMatches returns ids of banned or restricted users who logged in
// from the same hardware, for flagging on login.
func (r *HardwareRepository) BannedMatches(ctx context.Context, userID int32, hw model.ClientHashes) ([]int32, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if hw.RunningUnderWine() {
		rows, err = r.pool.Query(ctx,
			`SELECT DISTINCT users.id FROM hw_user
			 JOIN users ON users.id = hw_user.userid
			 WHERE hw_user.userid != $1 AND hw_user.unique_id = $2 AND (users.privileges & 3) != 3`,
			userID, hw.UniqueMD5)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT DISTINCT users.id FROM hw_user
			 JOIN users ON users.id = hw_user.userid
			 WHERE hw_user.userid != $1 AND hw_user.mac = $2 AND hw_user.unique_id = $3
			   AND hw_user.disk_id = $4 AND (users.privileges & 3) != 3`,
			userID, hw.MACMD5, hw.UniqueMD5, hw.DiskMD5)
	}
	if err != nil {
		return nil, fmt.Errorf("querying banned hardware matches of %d: %w", userID, err)
	}
	defer rows.Close()

	var result []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning hardware match row: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hardware match rows: %w", err)
	}
	return result, nil
}
