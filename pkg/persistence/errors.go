// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a workflow rule was not found.
	ErrRuleNotFound = errors.New("workflow rule not found")

	// ErrProcessNotFound indicates an approval process was not found.
	ErrProcessNotFound = errors.New("approval process not found")

	// ErrRequestNotFound indicates an approval request was not found.
	ErrRequestNotFound = errors.New("approval request not found")

	// ErrRecordNotFound indicates a CRM record was not found.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicatePendingRequest indicates a pending approval request
	// already exists for the (process, record) pair.
	ErrDuplicatePendingRequest = errors.New("pending approval request already exists")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g., "SaveRule", "PendingRequest")
	Key string // Identifier of the entity involved
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Key, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

// IsRuleNotFound checks if an error indicates a missing workflow rule.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsProcessNotFound checks if an error indicates a missing approval process.
func IsProcessNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound)
}

// IsRequestNotFound checks if an error indicates a missing approval request.
func IsRequestNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}

// IsRecordNotFound checks if an error indicates a missing record.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsDuplicatePendingRequest checks if an error indicates the one-pending-
// request-per-(process, record) invariant was violated.
func IsDuplicatePendingRequest(err error) bool {
	return errors.Is(err, ErrDuplicatePendingRequest)
}
