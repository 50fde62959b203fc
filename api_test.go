package flowens

import (
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flow-platform/flowens/sdk"
	"github.com/flow-platform/flowens/schema"
)

// drives the HTTP surface through the sdk client end to end.
func TestAPIRegistrationFlow(t *testing.T) {
	ledger := &fakeLedger{
		available: map[string]bool{"myawesome": true},
		base:      big.NewInt(5e15),
		premium:   big.NewInt(0),
	}
	s := newTestFlow(t, ledger)
	t0 := time.Now()
	s.now = func() time.Time { return t0 }
	s.attemptMg.now = s.now

	s.registerRoutes()
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	cli := sdk.New(srv.URL)

	s.updateGasPrice()
	info, err := cli.GetInfo()
	assert.NoError(t, err)
	assert.Equal(t, int64(60), info.MinCommitmentAgeSec)
	assert.Equal(t, "1000000000", info.GasPriceWei)

	ar, err := cli.Available("myawesome")
	assert.NoError(t, err)
	assert.True(t, ar.Available)
	assert.Equal(t, "myawesome.eth", ar.Name)

	quote, err := cli.Price("myawesome", 1)
	assert.NoError(t, err)
	assert.Equal(t, "0.005", quote.TotalEth)

	a, err := cli.NewAttempt(testOwner, schema.NewAttemptReq{Label: "myawesome"})
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptIdle, a.State)

	a, err = cli.CheckAttempt(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptChecked, a.State)

	a, err = cli.CommitAttempt(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptCommitted, a.State)
	// the secret never crosses the wire
	assert.Equal(t, [32]byte{}, a.Commitment.Secret)

	// too early comes back as a client error naming the wait
	_, err = cli.RegisterAttempt(a.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "commitment_too_young")
	assert.Equal(t, 0, ledger.registerCalls)

	s.now = func() time.Time { return t0.Add(61 * time.Second) }
	a, err = cli.RegisterAttempt(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.AttemptRegistered, a.State)
	assert.Equal(t, "myawesome.eth", a.Result.Name)

	records, err := cli.Registrations(testOwner)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))

	activities, err := cli.Activities(testOwner, 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(activities))
}

func TestAPIWatch(t *testing.T) {
	ledger := &fakeLedger{available: map[string]bool{"wanted": false}}
	s := newTestFlow(t, ledger)
	s.registerRoutes()
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	cli := sdk.New(srv.URL)

	assert.NoError(t, cli.AddWatch("wanted", testOwner))

	wd, err := cli.GetWatch("wanted")
	assert.NoError(t, err)
	assert.Equal(t, schema.WatchStatusTaken, wd.Status)

	// queued for the sweep job
	labels, err := s.store.LoadWatchPool(10)
	assert.NoError(t, err)
	assert.Equal(t, []string{"wanted"}, labels)

	assert.NoError(t, cli.RemoveWatch("wanted"))
	_, err = cli.GetWatch("wanted")
	assert.Error(t, err)
}

func TestAPIUnknownAttempt(t *testing.T) {
	s := newTestFlow(t, &fakeLedger{})
	s.registerRoutes()
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	cli := sdk.New(srv.URL)

	_, err := cli.GetAttempt("not-an-id")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "attempt_not_found")
}

func TestAPIInvalidLabel(t *testing.T) {
	s := newTestFlow(t, &fakeLedger{})
	s.registerRoutes()
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	cli := sdk.New(srv.URL)

	_, err := cli.Available("ab")
	assert.Error(t, err)
}
