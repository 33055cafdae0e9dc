package service

import (
	"errors"
	"fmt"
)

// Common service errors. Handlers map them to status codes with errors.Is.
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the request conflicts with current state
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserContextRequired is returned when user context is not available
	ErrUserContextRequired = errors.New("user context required")

	// ErrInvalidStatusTransition is returned when a work order cannot move to the requested status
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Resource-specific errors wrap the generic ones so callers can match either
var (
	ErrLeadNotFound         = fmt.Errorf("lead %w", ErrNotFound)
	ErrCustomerNotFound     = fmt.Errorf("customer %w", ErrNotFound)
	ErrWorkOrderNotFound    = fmt.Errorf("work order %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrTechnicianNotFound   = fmt.Errorf("technician %w", ErrNotFound)
	ErrBranchNotFound       = fmt.Errorf("branch %w", ErrNotFound)
	ErrInventoryNotFound    = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrReplacementNotFound  = fmt.Errorf("warranty replacement %w", ErrNotFound)
	ErrBillNotFound         = fmt.Errorf("bill %w", ErrNotFound)
	ErrAttachmentNotFound   = fmt.Errorf("attachment %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	ErrLeadAlreadyConverted = fmt.Errorf("%w: lead already converted", ErrConflict)
	ErrBranchExists         = fmt.Errorf("%w: branch name already exists", ErrConflict)
	ErrUserExists           = fmt.Errorf("%w: username or email already exists", ErrConflict)
	ErrOpenWarrantyClaim    = fmt.Errorf("%w: serial already has an open replacement claim", ErrConflict)
	ErrWorkOrderClosed      = fmt.Errorf("%w: work order is completed", ErrConflict)
)
