package schema

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	DefaultTLD = "eth"

	MinLabelLength = 3
	MaxLabelLength = 64

	SecondsPerYear = 365 * 24 * 60 * 60

	// DefaultMinCommitmentAge is only the bootstrap value; the controller's
	// minCommitmentAge() is authoritative and refreshed by jobs.
	DefaultMinCommitmentAge = 60 * time.Second
	DefaultMaxCommitmentAge = 24 * time.Hour

	SecretSize = 32
)

var weiPerEth = decimal.NewFromBigInt(big.NewInt(1e18), 0)

// RegistrationRequest is the user intent for one registration attempt.
// Immutable once a commitment has been generated for it.
type RegistrationRequest struct {
	Label         string `json:"label"`
	DurationYears int    `json:"durationYears"`
	ReverseRecord bool   `json:"reverseRecord"`
}

func (r RegistrationRequest) Name() string {
	return r.Label + "." + DefaultTLD
}

func (r RegistrationRequest) DurationSeconds() int64 {
	return int64(r.DurationYears) * SecondsPerYear
}

// PriceQuote is the rent price for a label and duration. Amounts are wei,
// the formatted fields are ETH strings for the API.
type PriceQuote struct {
	Base    *big.Int `json:"-"`
	Premium *big.Int `json:"-"`
	Total   *big.Int `json:"-"`

	BaseEth    string `json:"base"`
	PremiumEth string `json:"premium"`
	TotalEth   string `json:"total"`
}

func NewPriceQuote(base, premium *big.Int) PriceQuote {
	total := new(big.Int).Add(base, premium)
	return PriceQuote{
		Base:       base,
		Premium:    premium,
		Total:      total,
		BaseEth:    FormatEth(base),
		PremiumEth: FormatEth(premium),
		TotalEth:   FormatEth(total),
	}
}

func FormatEth(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, 0).Div(weiPerEth).String()
}

// Commitment binds (labelHash, owner, secret). The secret never leaves the
// process and is never persisted; a restart abandons the attempt.
type Commitment struct {
	LabelHash   common.Hash `json:"labelHash"`
	Hash        common.Hash `json:"commitment"`
	TxHash      string      `json:"txHash"`
	SubmittedAt time.Time   `json:"submittedAt"`

	Secret [SecretSize]byte `json:"-"`
}

// Registration mirrors the controller's register() tuple. Field order is
// the on-chain ABI order and must not change.
type Registration struct {
	Label         string
	Owner         common.Address
	Duration      *big.Int
	Secret        [SecretSize]byte
	Resolver      common.Address
	Data          [][]byte
	ReverseRecord uint8
	Referrer      [32]byte
}

// RegistrationResult is terminal and immutable.
type RegistrationResult struct {
	Name            string    `json:"name"`
	Owner           string    `json:"owner"`
	DurationSeconds int64     `json:"durationSeconds"`
	TxHash          string    `json:"txHash"`
	RegisteredAt    time.Time `json:"registeredAt"`
}
