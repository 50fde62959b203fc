package schema

import "time"

// Attempt states. Strictly forward except failed(commitment_expired) -> idle.
const (
	AttemptIdle       = "idle"
	AttemptChecking   = "checking"
	AttemptChecked    = "checked"
	AttemptCommitting = "committing"
	AttemptCommitted  = "committed"
	AttemptFinalizing = "finalizing"
	AttemptRegistered = "registered"
	AttemptFailed     = "failed"
)

type Attempt struct {
	ID      string              `json:"id"`
	Owner   string              `json:"owner"`
	Request RegistrationRequest `json:"request"`
	State   string              `json:"state"`

	Available  *bool               `json:"available,omitempty"`
	Quote      *PriceQuote         `json:"quote,omitempty"`
	Commitment *Commitment         `json:"commitment,omitempty"`
	Result     *RegistrationResult `json:"result,omitempty"`
	FailReason string              `json:"failReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Attempt) Terminal() bool {
	return a.State == AttemptRegistered || a.State == AttemptFailed
}
