package plans

import "errors"

var (
	ErrPlanNotFound        = errors.New("plan not found")
	ErrInvalidCatalog      = errors.New("invalid plan catalog")
	ErrMissingPlan         = errors.New("required plan missing from catalog")
	ErrDuplicatePlan       = errors.New("duplicate plan id")
	ErrDuplicateAlias      = errors.New("alias mapped to more than one plan")
	ErrInvalidLimit        = errors.New("invalid app limit")
	ErrFailedToReadCatalog = errors.New("failed to read plan catalog")
)
