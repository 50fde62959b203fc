package registrar

import (
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/everFinance/goether"
)

// Identity is the authorization capability: it owns an address and signs the
// two state-changing calls. It may refuse (user declined).
type Identity interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type EcdsaIdentity struct {
	signer *goether.Signer
}

func NewEcdsaIdentity(prvHex string) (*EcdsaIdentity, error) {
	signer, err := goether.NewSigner(prvHex)
	if err != nil {
		return nil, err
	}
	return &EcdsaIdentity{signer: signer}, nil
}

// NewEcdsaIdentityFromPath reads a hex-encoded private key from a keyfile.
func NewEcdsaIdentityFromPath(path string) (*EcdsaIdentity, error) {
	by, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewEcdsaIdentity(strings.TrimSpace(string(by)))
}

func (i *EcdsaIdentity) Address() common.Address {
	return i.signer.Address
}

func (i *EcdsaIdentity) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.NewEIP155Signer(chainID), i.signer.GetPrivateKey())
}
