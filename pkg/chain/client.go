// Package chain wraps an EVM JSON-RPC endpoint with the few primitives the
// agent needs: balances, gas estimation and signed native/ERC-20 transfers.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const (
	// nativeTransferGas is the fixed cost of a plain value transfer; it is
	// also the fallback when the estimator fails.
	nativeTransferGas = 21000
	// tokenTransferGas is the fallback limit for ERC-20 transfers.
	tokenTransferGas = 100000
)

var (
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	erc20TransferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

// Client is a signing EVM client bound to one account.
type Client struct {
	rpc     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
}

// Dial connects to rpcURL and loads the signing key. privKeyHex may be empty
// for a read-only client; transfers then fail with a configuration error.
func Dial(ctx context.Context, rpcURL, privKeyHex string) (*Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, fmt.Errorf("chain: rpc url missing")
	}
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}

	c := &Client{rpc: rpc, chainID: chainID}
	if strings.TrimSpace(privKeyHex) != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privKeyHex), "0x"))
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("chain: parse private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.rpc.Close() }

// Address returns the signing account, zero for a read-only client.
func (c *Client) Address() common.Address { return c.from }

// NativeBalance returns the chain-native balance of addr in wei.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.rpc.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balance of %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

// TokenBalance returns the ERC-20 balance of owner in base units.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := balanceOfCalldata(owner)
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf(%s) on %s: %w", owner.Hex(), token.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: balanceOf on %s returned empty result", token.Hex())
	}
	return new(big.Int).SetBytes(out), nil
}

// EstimateGas asks the node for a gas estimate, falling back to fallbackGas
// when the estimator errors. Estimation failures are common on nodes that
// simulate against a stale state; the transfer itself may still succeed.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg, fallbackGas uint64) uint64 {
	gas, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil || gas == 0 {
		return fallbackGas
	}
	return gas
}

// TransferNative sends amountWei to the recipient and returns the tx hash.
func (c *Client) TransferNative(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
	if err := c.checkSigner(); err != nil {
		return "", err
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return "", fmt.Errorf("chain: transfer amount must be positive")
	}
	gas := c.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Value: amountWei}, nativeTransferGas)
	return c.send(ctx, &to, amountWei, gas, nil)
}

// TransferToken sends an ERC-20 amount (base units) to the recipient and
// returns the tx hash.
func (c *Client) TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (string, error) {
	if err := c.checkSigner(); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("chain: transfer amount must be positive")
	}
	data := transferCalldata(to, amount)
	gas := c.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &token, Data: data}, tokenTransferGas)
	return c.send(ctx, &token, big.NewInt(0), gas, data)
}

// SendCall signs and broadcasts an arbitrary contract call built elsewhere
// (e.g. a DEX router swap).
func (c *Client) SendCall(ctx context.Context, to common.Address, value *big.Int, data []byte, fallbackGas uint64) (string, error) {
	if err := c.checkSigner(); err != nil {
		return "", err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	gas := c.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Value: value, Data: data}, fallbackGas)
	return c.send(ctx, &to, value, gas, data)
}

func (c *Client) checkSigner() error {
	if c.key == nil {
		return fmt.Errorf("chain: no private key configured, client is read-only")
	}
	return nil
}

func (c *Client) send(ctx context.Context, to *common.Address, value *big.Int, gas uint64, data []byte) (string, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("chain: pending nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign tx: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func balanceOfCalldata(owner common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	return data
}

func transferCalldata(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// ToBaseUnits converts a human amount like 1.5 into token base units for the
// given decimals, truncating any sub-unit remainder.
func ToBaseUnits(amount float64, decimals int) *big.Int {
	return decimal.NewFromFloat(amount).Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromBaseUnits converts token base units back into a human amount.
func FromBaseUnits(units *big.Int, decimals int) float64 {
	if units == nil {
		return 0
	}
	return decimal.NewFromBigInt(units, -int32(decimals)).InexactFloat64()
}
