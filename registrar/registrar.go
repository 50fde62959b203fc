package registrar

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/flow-platform/flowens/schema"
)

const gasMargin = 20 // percent headroom over the node's estimate

type priceTuple struct {
	Base    *big.Int
	Premium *big.Int
}

// Client talks to one ETHRegistrarController deployment.
type Client struct {
	ec      *ethclient.Client
	chainID *big.Int
	addr    common.Address
	cAbi    abi.ABI
}

func New(rpcURL string, controller common.Address, chainID int64) (*Client, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(controllerABI))
	if err != nil {
		return nil, err
	}
	return &Client{
		ec:      ec,
		chainID: big.NewInt(chainID),
		addr:    controller,
		cAbi:    parsed,
	}, nil
}

func (c *Client) ChainID() *big.Int {
	return c.chainID
}

func (c *Client) Close() {
	c.ec.Close()
}

func (c *Client) Available(ctx context.Context, label string) (bool, error) {
	out, err := c.call(ctx, "available", label)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *Client) RentPrice(ctx context.Context, label string, durationSec int64) (base, premium *big.Int, err error) {
	out, err := c.call(ctx, "rentPrice", label, big.NewInt(durationSec))
	if err != nil {
		return nil, nil, err
	}
	price := *abi.ConvertType(out[0], new(priceTuple)).(*priceTuple)
	return price.Base, price.Premium, nil
}

func (c *Client) MinCommitmentAge(ctx context.Context) (time.Duration, error) {
	return c.age(ctx, "minCommitmentAge")
}

func (c *Client) MaxCommitmentAge(ctx context.Context) (time.Duration, error) {
	return c.age(ctx, "maxCommitmentAge")
}

func (c *Client) age(ctx context.Context, method string) (time.Duration, error) {
	out, err := c.call(ctx, method)
	if err != nil {
		return 0, err
	}
	secs := out[0].(*big.Int)
	return time.Duration(secs.Int64()) * time.Second, nil
}

func (c *Client) Commit(ctx context.Context, id Identity, commitment common.Hash) (string, error) {
	input, err := c.cAbi.Pack("commit", [32]byte(commitment))
	if err != nil {
		return "", err
	}
	return c.send(ctx, id, input, nil)
}

func (c *Client) Register(ctx context.Context, id Identity, reg schema.Registration, payment *big.Int) (string, error) {
	input, err := c.cAbi.Pack("register", reg)
	if err != nil {
		return "", err
	}
	return c.send(ctx, id, input, payment)
}

func (c *Client) Renew(ctx context.Context, id Identity, label string, durationSec int64, payment *big.Int) (string, error) {
	input, err := c.cAbi.Pack("renew", label, big.NewInt(durationSec))
	if err != nil {
		return "", err
	}
	return c.send(ctx, id, input, payment)
}

func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.ec.BalanceAt(ctx, addr, nil)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.ec.SuggestGasPrice(ctx)
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.cAbi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	return c.cAbi.Unpack(method, ret)
}

func (c *Client) send(ctx context.Context, id Identity, input []byte, value *big.Int) (string, error) {
	from := id.Address()
	nonce, err := c.ec.PendingNonceAt(ctx, from)
	if err != nil {
		return "", err
	}
	gasPrice, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}
	gasLimit, err := c.ec.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.addr,
		Value: value,
		Data:  input,
	})
	if err != nil {
		// estimation runs the call; a revert surfaces here before any gas
		// is spent
		return "", err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.addr,
		Value:    value,
		Gas:      gasLimit * (100 + gasMargin) / 100,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := id.SignTx(tx, c.chainID)
	if err != nil {
		return "", err
	}
	if err := c.ec.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	receipt, err := bind.WaitMined(ctx, c.ec, signed)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("execution reverted: tx %s", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}
