// Package models defines the core domain models for CRM record automation.
package models

import "errors"

// Sentinel errors for the automation error taxonomy. Engine and action code
// wraps these with fmt.Errorf("...: %w", ...) so callers can classify
// failures with errors.Is without depending on concrete error types.
var (
	// ErrConfiguration indicates malformed rule, condition, or action
	// authoring. Never silently swallowed; surfaced to whoever edits
	// configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrField indicates an action referenced a field that does not exist
	// on the target entity type.
	ErrField = errors.New("field error")

	// ErrAuthorization indicates the actor lacks permission for a vote or
	// recall.
	ErrAuthorization = errors.New("authorization error")

	// ErrState indicates a transition attempted from a terminal or wrong
	// state.
	ErrState = errors.New("state error")

	// ErrDelivery indicates an external send failure. Non-fatal for email
	// alerts, fatal-but-logged for outbound messages.
	ErrDelivery = errors.New("delivery error")
)

// IsConfigurationError reports whether err is an authoring error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsFieldError reports whether err references a missing or invalid field.
func IsFieldError(err error) bool {
	return errors.Is(err, ErrField)
}

// IsAuthorizationError reports whether err is a permission failure.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrAuthorization)
}

// IsStateError reports whether err is an invalid state transition.
func IsStateError(err error) bool {
	return errors.Is(err, ErrState)
}

// IsDeliveryError reports whether err is an external send failure.
func IsDeliveryError(err error) bool {
	return errors.Is(err, ErrDelivery)
}
