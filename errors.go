package flowens

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidLabel    = errors.New("invalid_label")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrNotAvailable    = errors.New("name_not_available")

	// ErrNetwork means the registrar was unreachable; availability is
	// unknown, never assumed.
	ErrNetwork = errors.New("registrar_unreachable")

	// ErrPricing means the oracle returned a degenerate quote. No fallback
	// price is ever substituted.
	ErrPricing = errors.New("invalid_price_quote")

	ErrRejected           = errors.New("submission_rejected")
	ErrUserDeclined       = errors.New("user_declined")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrTooEarly           = errors.New("commitment_too_young")
	ErrCommitmentExpired  = errors.New("commitment_expired")
	ErrExecutionReverted  = errors.New("execution_reverted")
	ErrInvalidState       = errors.New("invalid_attempt_state")
	ErrAttemptNotFound    = errors.New("attempt_not_found")
	ErrAttemptInFlight    = errors.New("attempt_in_flight")
	ErrNoQuote            = errors.New("no_price_quote")
	ErrNoCompleterMatched = errors.New("no_completer_succeeded")
)

// TooEarlyError carries the remaining maturation wait so callers can surface
// it instead of burning gas on a submission the registrar will reject.
type TooEarlyError struct {
	Remaining time.Duration
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("%s: wait %s", ErrTooEarly.Error(), e.Remaining.Round(time.Second))
}

func (e *TooEarlyError) Unwrap() error {
	return ErrTooEarly
}
