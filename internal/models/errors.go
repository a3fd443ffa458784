package models

import "errors"

// Validation errors: rejected before any state change.
var (
	ErrMaterialUnavailable   = errors.New("material unavailable")
	ErrMinimumQuantity       = errors.New("minimum order quantity not met")
	ErrInvalidRating         = errors.New("rating must be between 1 and 5")
	ErrInvalidReviewLength   = errors.New("comment must be 10 to 500 characters")
	ErrPaymentAmountMismatch = errors.New("payment amount does not match order total")
)

// State errors: the caller must reconcile its view before retrying.
var (
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotReviewable = errors.New("order not in a reviewable state")
)

// ErrTransitionConflict signals a lost race for an order's transition
// scope. Retry-safe: the order is in a well-defined state.
var ErrTransitionConflict = errors.New("concurrent transition in progress")

// Not-found errors: recoverable by the caller supplying missing data.
var (
	ErrSupplierNotFound      = errors.New("supplier not found")
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrVendorLocationMissing = errors.New("vendor has no location on file")
)
