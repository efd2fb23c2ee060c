package profiles

import (
	"errors"
	"fmt"
)

var (
	// ErrApprovalRequired is returned for callers whose profile is pending or missing.
	ErrApprovalRequired = errors.New("profiles: approval required")
	// ErrInactive is returned for callers whose profile was deactivated.
	ErrInactive = errors.New("profiles: profile inactive")
	// ErrAdminRequired is returned when a caller lacks an active admin profile.
	ErrAdminRequired = errors.New("profiles: admin access required")
	// ErrProfileNotFound is returned when the target of an update does not exist.
	ErrProfileNotFound = errors.New("profiles: profile not found")
	// ErrInvalidCapability is returned when privileged calls carry a forged or empty capability.
	ErrInvalidCapability = errors.New("profiles: invalid admin capability")

	errMissingDatabase = errors.New("database handle is required")
	errMissingUserID   = errors.New("user identifier is required")
)

// ServiceError carries an operation-qualified code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "profiles.service.new"
	opEnsure       = "profiles.ensure"
	opLookup       = "profiles.lookup"
	opAuthorize    = "profiles.authorize"
	opGrantAdmin   = "profiles.grant_admin"
	opListAll      = "profiles.list_all"
	opUpdateAccess = "profiles.update_access"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
