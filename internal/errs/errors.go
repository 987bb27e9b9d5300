package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
)

// Split calculator validation failures. All of these reject the request
// before any balance write happens.
var (
	ErrNoParticipants       = errors.New("expense requires at least one participant")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrDuplicateParticipant = errors.New("duplicate participant in split")
	ErrPercentTotal         = errors.New("percentages must sum to exactly 100")
	ErrZeroShares           = errors.New("share counts must sum to > 0")
	ErrExactSumMismatch     = errors.New("exact split amounts must sum to the expense total")
	ErrCurrencyMismatch     = errors.New("currency does not match group currency")
	ErrNotGroupMember       = errors.New("user is not a member of the group")
)

// Balance and settlement invariant failures.
var (
	// ErrUnbalancedGroup signals a balance set that does not sum to zero,
	// which indicates upstream corruption rather than caller error.
	ErrUnbalancedGroup = errors.New("group balances do not sum to zero")
	// ErrBadStatusChange marks a forbidden payment status transition.
	ErrBadStatusChange = errors.New("payment status transition not allowed")
	// ErrStaleWrite is returned by storage when a balance write raced another
	// mutation; callers retry once against a fresh read.
	ErrStaleWrite = errors.New("stale balance write")
)
