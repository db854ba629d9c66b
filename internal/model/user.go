package model

import "strings"

// User is one row of the users table, as much of it as the realtime
// server cares about.
type User struct {
	ID                    int32
	Username              string
	UsernameSafe          string
	PasswordMD5           string // bcrypt hash of the client's MD5 digest
	Privileges            int32
	SilenceEnd            int64 // unix seconds, 0 = not silenced
	SilenceReason         string
	DonorExpire           int64 // unix seconds
	Country               string
	Frozen                bool
	FreezeDeadline        int64 // unix seconds the liveplay is due by
	FirstLoginAfterFrozen bool
}

// SafeUsername normalizes a display name into its unique lookup form:
// lowercased, trimmed, spaces replaced with underscores.
func SafeUsername(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
