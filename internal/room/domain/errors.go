package domain

import (
	"errors"
	"fmt"
	"time"
)

// 錯誤定義
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownAction     = errors.New("unknown action")
	ErrRoomNotFound      = errors.New("room not found")
	ErrUserNotFound      = errors.New("user not found in room")
	ErrRoomExpired       = errors.New("Room expired")
	ErrPasswordRequired  = errors.New("password required")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrNotAdmin          = errors.New("only the room admin can do this")
	ErrCannotKickSelf    = errors.New("admin cannot kick itself")
	ErrDatabaseNotReady  = errors.New("Database not ready")
	ErrThrottled         = errors.New("polling too frequently")
	ErrSettingNotFound   = errors.New("setting not found")
	ErrMalformedSettings = errors.New("malformed settings")
	ErrStorageDisabled   = errors.New("audio storage is not configured")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError error matching ErrInvalidInput with its own message
func NewValidationError(msg string) error {
	return &validationError{msg: msg}
}

// RateLimitError action rejected by the rate limiter
type RateLimitError struct {
	Action     Action
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Action)
}

// ThrottleError poll arrived inside the minimum spacing
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string { return ErrThrottled.Error() }

func (e *ThrottleError) Is(target error) bool { return target == ErrThrottled }
