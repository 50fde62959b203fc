package flowens

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	localcache "github.com/flow-platform/flowens/cache"
	"github.com/flow-platform/flowens/registrar"
	"github.com/flow-platform/flowens/schema"
)

type fakeLedger struct {
	available map[string]bool
	base      *big.Int
	premium   *big.Int

	availableErr error
	priceErr     error
	commitErr    error
	registerErr  error
	renewErr     error
	onRentPrice  func()

	availableCalls int
	commitCalls    int
	registerCalls  int
	renewCalls     int

	lastCommitment common.Hash
	lastReg        schema.Registration
	lastPayment    *big.Int
}

func (f *fakeLedger) Available(ctx context.Context, label string) (bool, error) {
	f.availableCalls++
	if f.availableErr != nil {
		return false, f.availableErr
	}
	return f.available[label], nil
}

func (f *fakeLedger) RentPrice(ctx context.Context, label string, durationSec int64) (*big.Int, *big.Int, error) {
	if f.onRentPrice != nil {
		f.onRentPrice()
	}
	if f.priceErr != nil {
		return nil, nil, f.priceErr
	}
	return f.base, f.premium, nil
}

func (f *fakeLedger) MinCommitmentAge(ctx context.Context) (time.Duration, error) {
	return 60 * time.Second, nil
}

func (f *fakeLedger) MaxCommitmentAge(ctx context.Context) (time.Duration, error) {
	return 24 * time.Hour, nil
}

func (f *fakeLedger) Commit(ctx context.Context, id registrar.Identity, commitment common.Hash) (string, error) {
	f.commitCalls++
	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.lastCommitment = commitment
	return "0xcommitTx", nil
}

func (f *fakeLedger) Register(ctx context.Context, id registrar.Identity, reg schema.Registration, payment *big.Int) (string, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.lastReg = reg
	f.lastPayment = new(big.Int).Set(payment)
	return "0xregisterTx", nil
}

func (f *fakeLedger) Renew(ctx context.Context, id registrar.Identity, label string, durationSec int64, payment *big.Int) (string, error) {
	f.renewCalls++
	if f.renewErr != nil {
		return "", f.renewErr
	}
	f.lastPayment = new(big.Int).Set(payment)
	return "0xrenewTx", nil
}

func (f *fakeLedger) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return big.NewInt(1e18), nil
}

func (f *fakeLedger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e9), nil
}

type fakeIdentity struct {
	addr common.Address
}

func (f *fakeIdentity) Address() common.Address {
	return f.addr
}

func (f *fakeIdentity) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

const testOwner = "0x1111111111111111111111111111111111111111"

func newTestFlow(t *testing.T, ledger Registrar) *FlowEns {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	assert.NoError(t, err)
	wdb := NewSqliteDb(dir)
	assert.NoError(t, wdb.Migrate())
	lc, err := localcache.NewLocalCache(30 * time.Second)
	assert.NoError(t, err)

	gin.SetMode(gin.TestMode)
	s := &FlowEns{
		store:      store,
		engine:     gin.New(),
		reg:        ledger,
		identity:   &fakeIdentity{addr: common.HexToAddress(testOwner)},
		resolver:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		attemptMg:  NewAttemptManager(),
		cache:      NewCache(),
		localCache: lc,
		wdb:        wdb,
		intent:     NewIntentService(nil),
		kwriter:    map[string]*KWriter{},
		now:        time.Now,
	}
	t.Cleanup(func() {
		store.Close()
		wdb.Close()
		os.RemoveAll(dir)
	})
	return s
}

func TestRegistrationFlow(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myawesome": true},
		base:      big.NewInt(5e15), // 0.005 ETH
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myawesome"})
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptIdle, a.State)

	a, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptChecked, a.State)
	assert.True(t, *a.Available)
	assert.Equal(t, "0.005", a.Quote.TotalEth)

	a, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptCommitted, a.State)
	assert.Equal(t, 1, ledger.commitCalls)
	assert.NotEqual(t, [32]byte{}, a.Commitment.Secret)

	// the ledger saw the same commitment the attempt holds
	assert.Equal(t, a.Commitment.Hash, ledger.lastCommitment)

	// 30s in: too early, no ledger call
	s.now = func() time.Time { return t0.Add(30 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	var tooEarly *TooEarlyError
	assert.ErrorAs(t, err, &tooEarly)
	assert.InDelta(t, 30.0, tooEarly.Remaining.Seconds(), 1.0)
	assert.Equal(t, 0, ledger.registerCalls)
	assert.Equal(t, schema.AttemptCommitted, a.State)

	// 61s in: registers and pays exactly the quoted total
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	a, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptRegistered, a.State)
	assert.Equal(t, "myawesome.eth", a.Result.Name)
	assert.Equal(t, int64(31536000), a.Result.DurationSeconds)
	assert.Equal(t, 1, ledger.registerCalls)
	assert.Equal(t, big.NewInt(5e15), ledger.lastPayment)

	// the reveal tuple carries the committed secret
	assert.Equal(t, a.Commitment.Secret, ledger.lastReg.Secret)
	assert.Equal(t, "myawesome", ledger.lastReg.Label)
	assert.Equal(t, uint8(1), ledger.lastReg.ReverseRecord)
	assert.Equal(t, big.NewInt(31536000), ledger.lastReg.Duration)

	// persisted on both stores
	res, err := s.store.LoadRegistration("myawesome.eth")
	assert.NoError(t, err)
	assert.Equal(t, testOwner, res.Owner)
	records, err := s.wdb.GetRegistrationsByOwner(testOwner)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))
}

func TestCheckTakenNeverCommits(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"taken": false},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "taken"})
	assert.NoError(t, err)
	a, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptChecked, a.State)
	assert.False(t, *a.Available)

	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, 0, ledger.commitCalls)
}

func TestFinalizeOutOfOrder(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)

	// from idle
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, ledger.registerCalls)

	// from checked, still before any commitment
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, ledger.registerCalls)

	// mid-check
	b, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "othername"})
	assert.NoError(t, err)
	assert.NoError(t, s.attemptMg.Transition(b.ID, schema.AttemptChecking))
	_, err = s.FinalizeAttempt(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, ledger.registerCalls)
}

func TestRejectedRevealNoResult(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)

	// the controller rejects the reveal (wrong secret, taken meanwhile, ...)
	ledger.registerErr = errors.New("execution reverted")
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrExecutionReverted)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Nil(t, a.Result)
	assert.Equal(t, schema.AttemptFailed, a.State)
	assert.False(t, s.store.IsExistRegistration("myname.eth"))
}

func TestCheckNetworkErrorRetryable(t *testing.T) {
	ledger := &fakeLedger{
		available:    map[string]bool{"myname": true},
		base:         big.NewInt(5e15),
		premium:      big.NewInt(0),
		availableErr: errors.New("connection refused"),
	}
	s := newTestFlow(t, ledger)

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)

	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNetwork)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptIdle, a.State)

	// oracle recovers, the same attempt checks cleanly
	ledger.availableErr = nil
	a, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptChecked, a.State)
	assert.True(t, *a.Available)
}

func TestDegeneratePriceNeverGuessed(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      nil,
		premium:   nil,
	}
	s := newTestFlow(t, ledger)

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrPricing)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Nil(t, a.Quote)
	assert.Equal(t, schema.AttemptIdle, a.State)
}

func TestCommitmentExpiredResetsToIdle(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)

	ledger.registerErr = errors.New("execution reverted: commitment expired or not found")
	s.now = func() time.Time { return t0.Add(90 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrCommitmentExpired)

	// back to idle with the stale secret discarded; checking works again
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptIdle, a.State)
	assert.Nil(t, a.Commitment)
	assert.Nil(t, a.Quote)
	ledger.registerErr = nil
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
}

func TestFinalizeNetworkErrorKeepsCommitment(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	a, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	secret := a.Commitment.Secret

	ledger.registerErr = errors.New("i/o timeout")
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNetwork)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptCommitted, a.State)

	// same live commitment finalizes once the network is back
	ledger.registerErr = nil
	a, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptRegistered, a.State)
	assert.Equal(t, secret, ledger.lastReg.Secret)
}

func TestFinalizeRequotesPrice(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)

	// premium appears while the commitment matures; finalize pays the
	// current price, not the stale quote
	ledger.premium = big.NewInt(2e15)
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	a, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(7e15), ledger.lastPayment)
	assert.Equal(t, "0.007", a.Quote.TotalEth)
}

func TestFinalizeSurvivesConcurrentSweep(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)

	// the stale-commitment sweep fires while finalize is re-quoting; the
	// reveal must be abandoned cleanly, never submitted with a wiped secret
	ledger.onRentPrice = func() { s.attemptMg.SweepStale(0) }
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, ledger.registerCalls)

	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptIdle, a.State)
	assert.Nil(t, a.Commitment)
}

func TestUserDeclinedCommit(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
		commitErr: errors.New("user rejected the request"),
	}
	s := newTestFlow(t, ledger)

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrRejected)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptFailed, a.State)
	assert.Equal(t, ErrUserDeclined.Error(), a.FailReason)
}

func TestInsufficientFundsAtRegister(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	a, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.CheckAttempt(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = s.CommitAttempt(context.Background(), a.ID)
	assert.NoError(t, err)

	ledger.registerErr = errors.New("insufficient funds for gas * price + value")
	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	_, err = s.FinalizeAttempt(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	a, err = s.attemptMg.Get(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptFailed, a.State)
}

func TestOneAttemptPerLabel(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myname": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	_, err := s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.NoError(t, err)
	_, err = s.NewRegistrationAttempt(testOwner, schema.NewAttemptReq{Label: "myname"})
	assert.ErrorIs(t, err, ErrAttemptInFlight)
}

func TestNewAttemptDefaults(t *testing.T) {
	s := newTestFlow(t, &fakeLedger{})

	a, err := s.NewRegistrationAttempt("", schema.NewAttemptReq{Label: "MyName.eth"})
	assert.NoError(t, err)
	assert.Equal(t, "myname", a.Request.Label)
	assert.Equal(t, 1, a.Request.DurationYears)
	assert.True(t, a.Request.ReverseRecord)
	assert.Equal(t, testOwner, a.Owner)
}

func TestNameAvailableCached(t *testing.T) {
	ledger := &fakeLedger{available: map[string]bool{"myname": true}}
	s := newTestFlow(t, ledger)

	available, err := s.NameAvailable(context.Background(), "myname")
	assert.NoError(t, err)
	assert.True(t, available)
	available, err = s.NameAvailable(context.Background(), "myname")
	assert.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, 1, ledger.availableCalls)
}

func TestNameAvailableErrorNotCached(t *testing.T) {
	ledger := &fakeLedger{
		available:    map[string]bool{"myname": true},
		availableErr: errors.New("connection refused"),
	}
	s := newTestFlow(t, ledger)

	_, err := s.NameAvailable(context.Background(), "myname")
	assert.ErrorIs(t, err, ErrNetwork)

	ledger.availableErr = nil
	available, err := s.NameAvailable(context.Background(), "myname")
	assert.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, 2, ledger.availableCalls)
}

func TestRenewName(t *testing.T) {
	ledger := &fakeLedger{
		base:    big.NewInt(1e16),
		premium: big.NewInt(0),
	}
	s := newTestFlow(t, ledger)

	result, err := s.RenewName(context.Background(), "myname.eth", 2)
	assert.NoError(t, err)
	assert.Equal(t, "myname.eth", result.Name)
	assert.Equal(t, int64(2*31536000), result.DurationSeconds)
	assert.Equal(t, 1, ledger.renewCalls)
	assert.Equal(t, big.NewInt(1e16), ledger.lastPayment)
}

func TestSuggestedNames(t *testing.T) {
	names := SuggestedNames("my name")
	assert.True(t, len(names) > 0)
	assert.True(t, len(names) <= 10)
	for _, n := range names {
		assert.True(t, ValidLabel(n), n)
	}
}

func TestClassifyLedgerErr(t *testing.T) {
	assert.Equal(t, ErrInsufficientFunds, classifyLedgerErr(errors.New("insufficient funds for transfer")))
	assert.Equal(t, ErrUserDeclined, classifyLedgerErr(errors.New("user rejected the request")))
	assert.Equal(t, ErrCommitmentExpired, classifyLedgerErr(errors.New("execution reverted: commitment expired")))
	assert.Equal(t, ErrNetwork, classifyLedgerErr(errors.New("dial tcp: i/o timeout")))
	assert.Equal(t, ErrExecutionReverted, classifyLedgerErr(errors.New("execution reverted")))
	assert.Equal(t, ErrExecutionReverted, classifyLedgerErr(errors.New("something odd")))
}
