package quota

import "errors"

var (
	ErrEmptyUserID       = errors.New("empty user id")
	ErrInvalidProgress   = errors.New("invalid user progress")
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrInvalidProject    = errors.New("name and description are required")
	ErrProjectNotFound   = errors.New("project not found")
	ErrLoadFailed        = errors.New("failed to load quota state")
	ErrSaveFailed        = errors.New("failed to save quota state")
	ErrEntitlementFailed = errors.New("failed to check entitlement")
	ErrLockFailed        = errors.New("failed to lock user quota")
)
