package flowens

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flow-platform/flowens/schema"
)

var labelRegexp = regexp.MustCompile(`^[a-z0-9-]{3,64}$`)

// transitions is the forward-only attempt graph. failed(commitment_expired)
// additionally resets to idle, handled in Fail.
var transitions = map[string][]string{
	schema.AttemptIdle:       {schema.AttemptChecking},
	schema.AttemptChecking:   {schema.AttemptChecked, schema.AttemptFailed},
	schema.AttemptChecked:    {schema.AttemptCommitting, schema.AttemptChecking, schema.AttemptFailed},
	schema.AttemptCommitting: {schema.AttemptCommitted, schema.AttemptFailed},
	schema.AttemptCommitted:  {schema.AttemptFinalizing, schema.AttemptFailed},
	schema.AttemptFinalizing: {schema.AttemptRegistered, schema.AttemptCommitted, schema.AttemptFailed},
	schema.AttemptRegistered: {},
	schema.AttemptFailed:     {},
}

// AttemptManager owns every in-flight registration attempt. One attempt per
// label at a time; submission entry points move the state forward under the
// lock, so a stale re-click can never double-submit.
type AttemptManager struct {
	attemptMap map[string]*schema.Attempt // key: attempt id
	labelMap   map[string]string          // key: label, val: in-flight attempt id
	locker     sync.RWMutex
	now        func() time.Time
}

func NewAttemptManager() *AttemptManager {
	return &AttemptManager{
		attemptMap: make(map[string]*schema.Attempt),
		labelMap:   make(map[string]string),
		now:        time.Now,
	}
}

func ValidLabel(label string) bool {
	if !labelRegexp.MatchString(label) {
		return false
	}
	return label[0] != '-' && label[len(label)-1] != '-'
}

func (m *AttemptManager) NewAttempt(owner string, req schema.RegistrationRequest) (*schema.Attempt, error) {
	if !ValidLabel(req.Label) {
		return nil, ErrInvalidLabel
	}
	if req.DurationYears <= 0 {
		return nil, ErrInvalidDuration
	}

	m.locker.Lock()
	defer m.locker.Unlock()

	if id, ok := m.labelMap[req.Label]; ok {
		if a, exist := m.attemptMap[id]; exist && !a.Terminal() {
			return nil, ErrAttemptInFlight
		}
	}

	now := m.now()
	attempt := &schema.Attempt{
		ID:        uuid.NewString(),
		Owner:     owner,
		Request:   req,
		State:     schema.AttemptIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.attemptMap[attempt.ID] = attempt
	m.labelMap[req.Label] = attempt.ID
	cp := *attempt
	return &cp, nil
}

// Get returns a copy of the attempt. Background jobs mutate the live one
// under the lock, so callers never hold a pointer that can change under them.
func (m *AttemptManager) Get(id string) (*schema.Attempt, error) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	a, ok := m.attemptMap[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

// CommittedView returns a consistent copy of a committed attempt. The state
// check and the commitment read happen under one lock hold, so a concurrent
// sweep can never hand the caller a committed state with a nil commitment.
func (m *AttemptManager) CommittedView(id string) (*schema.Attempt, error) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	a, ok := m.attemptMap[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.State != schema.AttemptCommitted || a.Commitment == nil {
		return nil, ErrInvalidState
	}
	cp := *a
	return &cp, nil
}

func (m *AttemptManager) Transition(id, to string) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.transition(id, to)
}

func (m *AttemptManager) transition(id, to string) error {
	a, ok := m.attemptMap[id]
	if !ok {
		return ErrAttemptNotFound
	}
	for _, next := range transitions[a.State] {
		if next == to {
			a.State = to
			a.UpdatedAt = m.now()
			return nil
		}
	}
	return ErrInvalidState
}

// RevertCheck returns a checking attempt to idle after a transient oracle
// failure so the stage can be re-invoked.
func (m *AttemptManager) RevertCheck(id, reason string) {
	m.locker.Lock()
	defer m.locker.Unlock()
	a, ok := m.attemptMap[id]
	if !ok || a.State != schema.AttemptChecking {
		return
	}
	a.State = schema.AttemptIdle
	a.FailReason = reason
	a.UpdatedAt = m.now()
}

func (m *AttemptManager) SetChecked(id string, available bool, quote *schema.PriceQuote) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	if err := m.transition(id, schema.AttemptChecked); err != nil {
		return err
	}
	a := m.attemptMap[id]
	a.Available = &available
	a.Quote = quote
	return nil
}

// UpdateQuote replaces the stored quote after a finalize-time re-quote.
func (m *AttemptManager) UpdateQuote(id string, quote *schema.PriceQuote) {
	m.locker.Lock()
	defer m.locker.Unlock()
	if a, ok := m.attemptMap[id]; ok {
		a.Quote = quote
	}
}

func (m *AttemptManager) SetCommitted(id string, commitment *schema.Commitment) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	if err := m.transition(id, schema.AttemptCommitted); err != nil {
		return err
	}
	m.attemptMap[id].Commitment = commitment
	return nil
}

func (m *AttemptManager) SetRegistered(id string, result *schema.RegistrationResult) error {
	m.locker.Lock()
	defer m.locker.Unlock()
	if err := m.transition(id, schema.AttemptRegistered); err != nil {
		return err
	}
	a := m.attemptMap[id]
	a.Result = result
	delete(m.labelMap, a.Request.Label)
	return nil
}

// Fail moves an attempt to failed from any non-terminal state. A
// commitment-expired failure resets to idle instead: the secret is gone and
// the user must re-check and re-commit.
func (m *AttemptManager) Fail(id, reason string) {
	m.locker.Lock()
	defer m.locker.Unlock()
	a, ok := m.attemptMap[id]
	if !ok || a.Terminal() {
		return
	}
	a.FailReason = reason
	a.UpdatedAt = m.now()
	if reason == ErrCommitmentExpired.Error() {
		a.State = schema.AttemptIdle
		a.Commitment = nil
		a.Quote = nil
		a.Available = nil
		return
	}
	a.State = schema.AttemptFailed
	delete(m.labelMap, a.Request.Label)
}

// SweepStale resets committed attempts whose commitment outlived maxAge.
// Client-side guard only; the registrar stays authoritative on expiry.
func (m *AttemptManager) SweepStale(maxAge time.Duration) []string {
	m.locker.Lock()
	defer m.locker.Unlock()

	swept := make([]string, 0)
	now := m.now()
	for id, a := range m.attemptMap {
		if a.State != schema.AttemptCommitted || a.Commitment == nil {
			continue
		}
		if now.Sub(a.Commitment.SubmittedAt) > maxAge {
			a.State = schema.AttemptIdle
			a.FailReason = ErrCommitmentExpired.Error()
			a.Commitment = nil
			a.Quote = nil
			a.Available = nil
			a.UpdatedAt = now
			swept = append(swept, id)
		}
	}
	return swept
}
