package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// UserRepository manages the users table and its moderation state.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, username_safe, password_md5, privileges,
	silence_end, silence_reason, donor_expire, country, frozen, freezedate, firstloginafterfrozen`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var frozen, firstLogin int16
	err := row.Scan(&u.ID, &u.Username, &u.UsernameSafe, &u.PasswordMD5, &u.Privileges,
		&u.SilenceEnd, &u.SilenceReason, &u.DonorExpire, &u.Country, &frozen, &u.FreezeDeadline, &firstLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Frozen = frozen != 0
	u.FirstLoginAfterFrozen = firstLogin != 0
	return &u, nil
}

// GetBySafeName returns the user with the given safe username.
// Returns nil, nil if no such user exists.
func (r *UserRepository) GetBySafeName(ctx context.Context, safeName string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username_safe = $1`, safeName))
	if err != nil {
		return nil, fmt.Errorf("querying user %q: %w", safeName, err)
	}
	return u, nil
}

// GetByID returns the user with the given id. Returns nil, nil if absent.
func (r *UserRepository) GetByID(ctx context.Context, userID int32) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("querying user %d: %w", userID, err)
	}
	return u, nil
}

// GetIDBySafeName resolves a safe username to a user id. Returns 0 if absent.
func (r *UserRepository) GetIDBySafeName(ctx context.Context, safeName string) (int32, error) {
	var id int32
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE username_safe = $1`, safeName).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("resolving user %q: %w", safeName, err)
	}
	return id, nil
}

// GetUsername returns the display name for a user id, "" if absent.
func (r *UserRepository) GetUsername(ctx context.Context, userID int32) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT username FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("querying username of %d: %w", userID, err)
	}
	return name, nil
}

// Privileges returns the privilege bits for a user id.
func (r *UserRepository) Privileges(ctx context.Context, userID int32) (int32, error) {
	var privs int32
	err := r.pool.QueryRow(ctx,
		`SELECT privileges FROM users WHERE id = $1`, userID).Scan(&privs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying privileges of %d: %w", userID, err)
	}
	return privs, nil
}

// SilenceEnd returns the unix time the user's silence expires, 0 if none.
func (r *UserRepository) SilenceEnd(ctx context.Context, userID int32) (int64, error) {
	var end int64
	err := r.pool.QueryRow(ctx,
		`SELECT silence_end FROM users WHERE id = $1`, userID).Scan(&end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying silence end of %d: %w", userID, err)
	}
	return end, nil
}

// Silence sets the silence deadline and reason. A zero deadline lifts it.
func (r *UserRepository) Silence(ctx context.Context, userID int32, silenceEnd int64, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET silence_end = $1, silence_reason = $2 WHERE id = $3`,
		silenceEnd, reason, userID)
	if err != nil {
		return fmt.Errorf("silencing user %d: %w", userID, err)
	}
	return nil
}

// UpdateLatestActivity bumps the user's last-seen timestamp.
func (r *UserRepository) UpdateLatestActivity(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET latest_activity = $1 WHERE id = $2`,
		time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("updating latest activity of %d: %w", userID, err)
	}
	return nil
}

// UpdateOsuVersion records the client build the user last logged in with.
func (r *UserRepository) UpdateOsuVersion(ctx context.Context, userID int32, version string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET osuver = $1 WHERE id = $2`, version, userID)
	if err != nil {
		return fmt.Errorf("updating osu version of %d: %w", userID, err)
	}
	return nil
}

// SetCountry stores the two-letter country code for a user.
func (r *UserRepository) SetCountry(ctx context.Context, userID int32, countryCode string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET country = $1 WHERE id = $2`,
		strings.ToUpper(countryCode), userID)
	if err != nil {
		return fmt.Errorf("setting country of %d: %w", userID, err)
	}
	return nil
}

// SetPrivileges overwrites the privilege bits for a user.
func (r *UserRepository) SetPrivileges(ctx context.Context, userID int32, privileges int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET privileges = $1 WHERE id = $2`, privileges, userID)
	if err != nil {
		return fmt.Errorf("setting privileges of %d: %w", userID, err)
	}
	return nil
}

// Restrict hides the user from the public without blocking login.
func (r *UserRepository) Restrict(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET privileges = privileges & ~$1::int WHERE id = $2`,
		constants.UserPublic, userID)
	if err != nil {
		return fmt.Errorf("restricting user %d: %w", userID, err)
	}
	return nil
}

// Ban removes both login and visibility bits and stamps ban_datetime.
func (r *UserRepository) Ban(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET privileges = privileges & ~$1::int, ban_datetime = $2 WHERE id = $3`,
		constants.UserPublic|constants.UserNormal, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("banning user %d: %w", userID, err)
	}
	return nil
}

// Unban restores the login and visibility bits.
func (r *UserRepository) Unban(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET privileges = privileges | $1::int, ban_datetime = 0 WHERE id = $2`,
		constants.UserPublic|constants.UserNormal, userID)
	if err != nil {
		return fmt.Errorf("unbanning user %d: %w", userID, err)
	}
	return nil
}

// ResetPendingVerification marks a freshly verified account as a normal
// public one.
func (r *UserRepository) ResetPendingVerification(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET privileges = (privileges & ~$1::int) | $2::int WHERE id = $3`,
		constants.UserPendingVerification, constants.UserPublic|constants.UserNormal, userID)
	if err != nil {
		return fmt.Errorf("resetting pending verification of %d: %w", userID, err)
	}
	return nil
}

// AppendNotes appends a line to the user's admin notes.
func (r *UserRepository) AppendNotes(ctx context.Context, userID int32, note string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET notes = COALESCE(notes, '') || E'\n' || $1 WHERE id = $2`,
		note, userID)
	if err != nil {
		return fmt.Errorf("appending notes of %d: %w", userID, err)
	}
	return nil
}

// InsertBanLog records a moderation action against a user.
// When prefix is set the detail is marked as an automated action.
func (r *UserRepository) InsertBanLog(ctx context.Context, fromID, toID int32, summary, detail string, prefix bool) error {
	if prefix {
		detail = "bancho autoban: " + detail
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ban_logs (from_id, to_id, summary, detail) VALUES ($1, $2, $3, $4)`,
		fromID, toID, summary, detail)
	if err != nil {
		return fmt.Errorf("inserting ban log for %d: %w", toID, err)
	}
	return nil
}

// RestrictWithLog restricts the user and records why.
func (r *UserRepository) RestrictWithLog(ctx context.Context, userID int32, summary, detail string, fromID int32) error {
	if err := r.Restrict(ctx, userID); err != nil {
		return err
	}
	return r.InsertBanLog(ctx, fromID, userID, summary, detail, true)
}

// Freeze flags the account for a manual check, due in two days.
func (r *UserRepository) Freeze(ctx context.Context, userID int32) error {
	deadline := time.Now().Add(48 * time.Hour).Unix()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET frozen = 1, freezedate = $1 WHERE id = $2`, deadline, userID)
	if err != nil {
		return fmt.Errorf("freezing user %d: %w", userID, err)
	}
	return nil
}

// Unfreeze lifts the freeze flag and arms the first-login notice.
func (r *UserRepository) Unfreeze(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET frozen = 0, freezedate = 0, firstloginafterfrozen = 1 WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("unfreezing user %d: %w", userID, err)
	}
	return nil
}

// AckUnfreezeNotice clears the one-shot unfreeze notice flag.
func (r *UserRepository) AckUnfreezeNotice(ctx context.Context, userID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET firstloginafterfrozen = 0 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clearing unfreeze notice of %d: %w", userID, err)
	}
	return nil
}

// ChangeUsername renames the user across the users table and all three
// per-mode stats tables in one transaction.
func (r *UserRepository) ChangeUsername(ctx context.Context, userID int32, newName string) error {
	safe := model.SafeUsername(newName)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning rename of %d: %w", userID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE users SET username = $1, username_safe = $2 WHERE id = $3`,
		newName, safe, userID); err != nil {
		return fmt.Errorf("renaming user %d: %w", userID, err)
	}
	for _, table := range []string{"users_stats", "rx_stats", "ap_stats"} {
		if _, err := tx.Exec(ctx,
			`UPDATE `+table+` SET username = $1 WHERE id = $2`, newName, userID); err != nil {
			return fmt.Errorf("renaming user %d in %s: %w", userID, table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rename of %d: %w", userID, err)
	}
	return nil
}

// GetFriends returns the ids the user has added as friends.
func (r *UserRepository) GetFriends(ctx context.Context, userID int32) ([]int32, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user2 FROM users_relationships WHERE user1 = $1 ORDER BY user2`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends of %d: %w", userID, err)
	}
	defer rows.Close()

	result := make([]int32, 0, 16)
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend row: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend rows: %w", err)
	}
	return result, nil
}

// AddFriend records a one-directional friend relation.
func (r *UserRepository) AddFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users_relationships (user1, user2) VALUES ($1, $2)
		 ON CONFLICT (user1, user2) DO NOTHING`,
		userID, friendID)
	if err != nil {
		return fmt.Errorf("adding friend %d for %d: %w", friendID, userID, err)
	}
	return nil
}

// RemoveFriend removes a one-directional friend relation.
func (r *UserRepository) RemoveFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM users_relationships WHERE user1 = $1 AND user2 = $2`,
		userID, friendID)
	if err != nil {
		return fmt.Errorf("removing friend %d for %d: %w", friendID, userID, err)
	}
	return nil
}
