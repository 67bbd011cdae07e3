package usermeta

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmptyUserID     = errors.New("empty user id")
	ErrFetchFailed     = errors.New("failed to fetch user metadata")
	ErrUpdateFailed    = errors.New("failed to update user metadata")
	ErrListFailed      = errors.New("failed to list users")
	ErrInvalidMetadata = errors.New("invalid metadata document")
	ErrLockFailed      = errors.New("failed to acquire lock")
)
