package flowens

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/datatypes"

	"github.com/flow-platform/flowens/registrar"
	"github.com/flow-platform/flowens/schema"
)

// NewRegistrationAttempt validates the user intent and opens a fresh attempt
// in idle state. Defaulting happens here, nowhere else.
func (s *FlowEns) NewRegistrationAttempt(owner string, req schema.NewAttemptReq) (*schema.Attempt, error) {
	label := NormalizeLabel(req.Label)
	years := req.DurationYears
	if years == 0 {
		years = 1
	}
	reverseRecord := true
	if req.ReverseRecord != nil {
		reverseRecord = *req.ReverseRecord
	}
	if owner == "" {
		owner = s.identity.Address().Hex()
	}
	return s.attemptMg.NewAttempt(owner, schema.RegistrationRequest{
		Label:         label,
		DurationYears: years,
		ReverseRecord: reverseRecord,
	})
}

func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.TrimSuffix(label, "."+schema.DefaultTLD)
}

// CheckAttempt runs the availability and price stage. A transient oracle
// failure returns the attempt to idle so the stage can be re-invoked;
// availability is never defaulted and no price is ever guessed.
func (s *FlowEns) CheckAttempt(ctx context.Context, id string) (*schema.Attempt, error) {
	a, err := s.attemptMg.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.attemptMg.Transition(id, schema.AttemptChecking); err != nil {
		return nil, err
	}

	label := a.Request.Label
	available, err := s.reg.Available(ctx, label)
	if err != nil {
		s.attemptMg.RevertCheck(id, ErrNetwork.Error())
		metricAvailabilityCheck("error")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if !available {
		metricAvailabilityCheck("taken")
		if err := s.attemptMg.SetChecked(id, false, nil); err != nil {
			return nil, err
		}
		return s.attemptMg.Get(id)
	}

	quote, err := s.quotePrice(ctx, label, a.Request.DurationSeconds())
	if err != nil {
		s.attemptMg.RevertCheck(id, err.Error())
		return nil, err
	}
	metricAvailabilityCheck("available")
	if err := s.attemptMg.SetChecked(id, true, &quote); err != nil {
		return nil, err
	}
	return s.attemptMg.Get(id)
}

// CommitAttempt generates the secret and submits the commitment. The
// committing transition under the manager lock is the duplicate-submission
// guard: a second call observes committing and fails with ErrInvalidState.
func (s *FlowEns) CommitAttempt(ctx context.Context, id string) (*schema.Attempt, error) {
	a, err := s.attemptMg.Get(id)
	if err != nil {
		return nil, err
	}
	if a.Available == nil || !*a.Available {
		return nil, ErrNotAvailable
	}
	if a.Quote == nil {
		return nil, ErrNoQuote
	}
	if err := s.attemptMg.Transition(id, schema.AttemptCommitting); err != nil {
		return nil, err
	}

	secret, err := registrar.NewSecret()
	if err != nil {
		s.attemptMg.Fail(id, ErrRejected.Error())
		return nil, err
	}
	owner := common.HexToAddress(a.Owner)
	commitment, err := registrar.MakeCommitment(a.Request.Label, owner, secret)
	if err != nil {
		s.attemptMg.Fail(id, ErrRejected.Error())
		return nil, err
	}

	txHash, err := s.reg.Commit(ctx, s.identity, commitment)
	if err != nil {
		cerr := classifyLedgerErr(err)
		s.attemptMg.Fail(id, cerr.Error())
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	cmt := &schema.Commitment{
		LabelHash:   registrar.LabelHash(a.Request.Label),
		Hash:        commitment,
		TxHash:      txHash,
		SubmittedAt: s.now(),
		Secret:      secret,
	}
	if err := s.attemptMg.SetCommitted(id, cmt); err != nil {
		return nil, err
	}
	metricCommit()
	log.Info("commitment submitted", "label", a.Request.Label, "commitment", commitment.Hex(), "tx", txHash)
	return s.attemptMg.Get(id)
}

// FinalizeAttempt reveals the secret and pays the quoted total. The
// maturation check runs before any ledger call; submitting early only wastes
// gas on a guaranteed revert. It works on a locked snapshot of the attempt,
// so the stale-commitment sweep can run in between without disturbing it.
func (s *FlowEns) FinalizeAttempt(ctx context.Context, id string) (*schema.Attempt, error) {
	a, err := s.attemptMg.CommittedView(id)
	if err != nil {
		return nil, err
	}
	if a.Quote == nil {
		return nil, ErrNoQuote
	}

	minAge := s.minCommitmentAge()
	elapsed := s.now().Sub(a.Commitment.SubmittedAt)
	if elapsed < minAge {
		return nil, &TooEarlyError{Remaining: minAge - elapsed}
	}

	// re-quote: rent price can move between check and finalize, and the
	// controller rejects underpayment
	quote, err := s.quotePrice(ctx, a.Request.Label, a.Request.DurationSeconds())
	if err != nil {
		return nil, err
	}

	if err := s.attemptMg.Transition(id, schema.AttemptFinalizing); err != nil {
		return nil, err
	}
	s.attemptMg.UpdateQuote(id, &quote)
	a.Quote = &quote

	reverseRecord := uint8(0)
	if a.Request.ReverseRecord {
		reverseRecord = 1
	}
	reg := schema.Registration{
		Label:         a.Request.Label,
		Owner:         common.HexToAddress(a.Owner),
		Duration:      big.NewInt(a.Request.DurationSeconds()),
		Secret:        a.Commitment.Secret,
		Resolver:      s.resolver,
		Data:          [][]byte{},
		ReverseRecord: reverseRecord,
		Referrer:      [32]byte{},
	}
	txHash, err := s.reg.Register(ctx, s.identity, reg, quote.Total)
	if err != nil {
		cerr := classifyLedgerErr(err)
		switch cerr {
		case ErrNetwork:
			// transient; the commitment is still live on chain
			if terr := s.attemptMg.Transition(id, schema.AttemptCommitted); terr != nil {
				log.Error("revert finalizing failed", "err", terr, "attempt", id)
			}
		case ErrCommitmentExpired:
			// registrar is authoritative; restart from a fresh secret
			s.attemptMg.Fail(id, ErrCommitmentExpired.Error())
		default:
			s.attemptMg.Fail(id, cerr.Error())
		}
		metricRegistration("failed")
		return nil, fmt.Errorf("%w: %v", cerr, err)
	}

	result := &schema.RegistrationResult{
		Name:            a.Request.Name(),
		Owner:           a.Owner,
		DurationSeconds: a.Request.DurationSeconds(),
		TxHash:          txHash,
		RegisteredAt:    s.now(),
	}
	if err := s.attemptMg.SetRegistered(id, result); err != nil {
		return nil, err
	}
	metricRegistration("success")
	s.recordRegistration(a, result)
	log.Info("registration finalized", "name", result.Name, "tx", txHash)
	return s.attemptMg.Get(id)
}

// minCommitmentAge prefers the config value, refreshed from the controller;
// the seeded cache covers startup before the first refresh lands.
func (s *FlowEns) minCommitmentAge() time.Duration {
	if s.config != nil {
		return s.config.GetMinCommitmentAge()
	}
	minAge, _ := s.cache.GetCommitmentAges()
	return minAge
}

func (s *FlowEns) maxCommitmentAge() time.Duration {
	if s.config != nil {
		return s.config.GetMaxCommitmentAge()
	}
	_, maxAge := s.cache.GetCommitmentAges()
	return maxAge
}

// RenewName extends an existing registration; no commitment is needed.
func (s *FlowEns) RenewName(ctx context.Context, label string, years int) (*schema.RegistrationResult, error) {
	label = NormalizeLabel(label)
	if !ValidLabel(label) {
		return nil, ErrInvalidLabel
	}
	if years <= 0 {
		years = 1
	}
	durationSec := int64(years) * schema.SecondsPerYear

	quote, err := s.quotePrice(ctx, label, durationSec)
	if err != nil {
		return nil, err
	}
	txHash, err := s.reg.Renew(ctx, s.identity, label, durationSec, quote.Total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", classifyLedgerErr(err), err)
	}

	result := &schema.RegistrationResult{
		Name:            label + "." + schema.DefaultTLD,
		Owner:           s.identity.Address().Hex(),
		DurationSeconds: durationSec,
		TxHash:          txHash,
		RegisteredAt:    s.now(),
	}
	metricRenewal()
	s.recordActivity(schema.ActivityRenewal, result.Name, result.Owner, txHash, schema.ActivityCompleted, map[string]interface{}{
		"years": years,
		"paid":  quote.TotalEth,
	})
	return result, nil
}

// NameAvailable is the stateless read used by the API and the watch jobs.
// Responses are cached briefly; errors are never cached and never defaulted.
func (s *FlowEns) NameAvailable(ctx context.Context, label string) (bool, error) {
	label = NormalizeLabel(label)
	if !ValidLabel(label) {
		return false, ErrInvalidLabel
	}
	cacheKey := "available-" + label
	if by, err := s.localCache.Cache.Get(cacheKey); err == nil {
		return by[0] == '1', nil
	}
	available, err := s.reg.Available(ctx, label)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	val := []byte("0")
	if available {
		val = []byte("1")
	}
	if err := s.localCache.Cache.Set(cacheKey, val); err != nil {
		log.Warn("cache availability failed", "err", err, "label", label)
	}
	return available, nil
}

func (s *FlowEns) NamePrice(ctx context.Context, label string, years int) (schema.PriceQuote, error) {
	label = NormalizeLabel(label)
	if !ValidLabel(label) {
		return schema.PriceQuote{}, ErrInvalidLabel
	}
	if years <= 0 {
		years = 1
	}
	return s.quotePrice(ctx, label, int64(years)*schema.SecondsPerYear)
}

func (s *FlowEns) quotePrice(ctx context.Context, label string, durationSec int64) (schema.PriceQuote, error) {
	base, premium, err := s.reg.RentPrice(ctx, label, durationSec)
	if err != nil {
		return schema.PriceQuote{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if base == nil || premium == nil || base.Sign() < 0 || premium.Sign() < 0 {
		return schema.PriceQuote{}, ErrPricing
	}
	quote := schema.NewPriceQuote(base, premium)
	if quote.Total.Sign() <= 0 {
		return schema.PriceQuote{}, ErrPricing
	}
	return quote, nil
}

// SuggestedNames derives candidate labels from free input. Pure, no ledger
// calls.
func SuggestedNames(input string) []string {
	clean := make([]byte, 0, len(input))
	for _, ch := range []byte(strings.ToLower(input)) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			clean = append(clean, ch)
		}
	}
	if len(clean) == 0 {
		return []string{}
	}
	base := string(clean)

	suggestions := []string{base}
	for _, suffix := range []string{"business", "personal", "defi", "nft", "dao", "agent", "community"} {
		suggestions = append(suggestions, base+"-"+suffix)
	}
	for _, prefix := range []string{"my", "the", "our", "best", "top"} {
		suggestions = append(suggestions, prefix+"-"+base)
	}
	if len(suggestions) > 10 {
		suggestions = suggestions[:10]
	}
	return suggestions
}

func classifyLedgerErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ErrInsufficientFunds
	case strings.Contains(msg, "user declined"), strings.Contains(msg, "user rejected"):
		return ErrUserDeclined
	case strings.Contains(msg, "commitment"):
		return ErrCommitmentExpired
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "eof"):
		return ErrNetwork
	case strings.Contains(msg, "execution reverted"):
		return ErrExecutionReverted
	default:
		return ErrExecutionReverted
	}
}

func (s *FlowEns) recordRegistration(a *schema.Attempt, result *schema.RegistrationResult) {
	if err := s.store.SaveRegistration(*result); err != nil {
		log.Error("s.store.SaveRegistration(result)", "err", err, "name", result.Name)
	}
	if err := s.wdb.InsertRegistration(schema.RegistrationRecord{
		Name:            result.Name,
		Owner:           result.Owner,
		DurationSeconds: result.DurationSeconds,
		TxHash:          result.TxHash,
		TotalPaid:       a.Quote.Total.String(),
	}); err != nil {
		log.Error("s.wdb.InsertRegistration", "err", err, "name", result.Name)
	}
	s.recordActivity(schema.ActivityRegistration, result.Name, result.Owner, result.TxHash, schema.ActivityCompleted, map[string]interface{}{
		"years": a.Request.DurationYears,
		"paid":  a.Quote.TotalEth,
	})
	// the cached availability answer is stale the moment the register lands
	if err := s.localCache.Cache.Delete("available-" + a.Request.Label); err != nil {
		log.Debug("drop cached availability", "err", err, "label", a.Request.Label)
	}
	s.publishEvent(RegistrationTopic, result)
}

func (s *FlowEns) recordActivity(typ, name, owner, txHash, status string, metadata map[string]interface{}) {
	md, err := json.Marshal(metadata)
	if err != nil {
		md = []byte("{}")
	}
	if err := s.wdb.InsertActivity(schema.Activity{
		Type:     typ,
		Name:     name,
		Owner:    owner,
		TxHash:   txHash,
		Status:   status,
		Metadata: datatypes.JSON(md),
	}); err != nil {
		log.Error("s.wdb.InsertActivity", "err", err, "name", name, "type", typ)
	}
}

func (s *FlowEns) publishEvent(topic string, v interface{}) {
	kw, ok := s.kwriter[topic]
	if !ok {
		return
	}
	by, err := json.Marshal(v)
	if err != nil {
		log.Error("marshal event", "err", err, "topic", topic)
		return
	}
	if err := kw.Write(by); err != nil {
		log.Error("kw.Write(by)", "err", err, "topic", topic)
	}
}
