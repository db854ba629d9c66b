package bancho

import "errors"

// ChatError is the tagged failure of a chat operation. Code is the
// IRC-style numeric the chat gateway reports; game clients only ever see
// the side effects (notifications, silence packets), never the code.
type ChatError struct {
	Reason string
	Code   int
}

func (e *ChatError) Error() string { return e.Reason }

// Chat failures, one per rejection rule.
var (
	ErrInvalidArguments     = &ChatError{"invalid arguments", 400}
	ErrChannelUnknown       = &ChatError{"unknown channel", 403}
	ErrChannelNoPermissions = &ChatError{"no permissions on channel", 403}
	ErrChannelModerated     = &ChatError{"channel is in moderated mode", 404}
	ErrUserNotInChannel     = &ChatError{"user not in channel", 442}
	ErrUserAlreadyInChannel = &ChatError{"user already in channel", 403}
	ErrUserNotFound         = &ChatError{"user not found", 401}
	ErrUserRestricted       = &ChatError{"user is restricted", 404}
	ErrUserSilenced         = &ChatError{"user is silenced", 404}
)

// Registry and bot command failures.
var (
	ErrTokenNotFound     = errors.New("token not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrWrongChannel      = errors.New("wrong channel")
	ErrMissingReportInfo = errors.New("missing report info")
	ErrInvalidUser       = errors.New("invalid user")
)

// Login failures. Each maps to a fixed reply the handler writes when the
// pipeline aborts; anything else becomes the generic server-error reply.
var (
	ErrLoginFailed      = errors.New("login failed")
	ErrLoginBanned      = errors.New("login banned")
	ErrLoginLocked      = errors.New("login locked")
	ErrLoginCheatClient = errors.New("login from cheat client")
	ErrForceUpdate      = errors.New("client update required")
	ErrMaintenance      = errors.New("bancho is in maintenance mode")
	ErrRestarting       = errors.New("bancho is restarting")
	ErrNeed2FA          = errors.New("verification required")
)
