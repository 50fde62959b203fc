package registrar

import (
	"crypto/rand"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/flow-platform/flowens/schema"
)

var (
	bytes32Ty, _ = abi.NewType("bytes32", "", nil)
	addressTy, _ = abi.NewType("address", "", nil)

	// (labelHash, owner, secret) in this exact order; the controller
	// recomputes the same encoding at register time.
	commitmentArgs = abi.Arguments{
		{Type: bytes32Ty},
		{Type: addressTy},
		{Type: bytes32Ty},
	}
)

func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// NewSecret draws a fresh 32-byte secret from the OS CSPRNG. One secret per
// attempt, never reused.
func NewSecret() (secret [schema.SecretSize]byte, err error) {
	_, err = rand.Read(secret[:])
	return
}

func MakeCommitment(label string, owner common.Address, secret [schema.SecretSize]byte) (common.Hash, error) {
	labelHash := LabelHash(label)
	enc, err := commitmentArgs.Pack([32]byte(labelHash), owner, secret)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}
