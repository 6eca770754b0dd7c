package services

import "errors"

// Errors shared by several services. Resource specific errors live next to their service.
var (
	ErrValidation       = errors.New("validation error")
	ErrForbidden        = errors.New("operation not permitted for this user")
	ErrPlanLimitReached = errors.New("plan limit reached")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrTenantInactive   = errors.New("tenant is suspended")
)
