// Package chain is a stateless wrapper around a JSON-RPC Ethereum node:
// balance, nonce, fee and receipt reads plus raw broadcast of fully-signed
// transactions. It holds no keys and tracks no state of its own.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
)

type FeeEstimate struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	log     *zap.Logger
}

// Dial connects to the RPC endpoint and verifies that the node serves the
// configured chain; a mismatch here would otherwise surface as silently
// invalid signatures.
func Dial(ctx context.Context, rpcURL string, chainID int64, log *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperr.Upstream("failed to connect to RPC endpoint", err)
	}

	want := big.NewInt(chainID)
	got, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, apperr.Upstream("failed to read chain id from RPC endpoint", err)
	}
	if got.Cmp(want) != 0 {
		eth.Close()
		return nil, apperr.Upstream("RPC endpoint serves chain "+got.String()+", configured for "+want.String(), nil)
	}

	log.Info("chain client connected", zap.String("chain_id", want.String()))
	return &Client{eth: eth, chainID: want, log: log}, nil
}

func (c *Client) Close() { c.eth.Close() }

func (c *Client) ChainID() *big.Int { return c.chainID }

func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, apperr.Upstream("eth_getBalance failed", err)
	}
	return bal, nil
}

// PendingNonce reads the sender's transaction count including pending
// transactions. This is a point-in-time chain read, not a local counter.
func (c *Client) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, apperr.Upstream("eth_getTransactionCount failed", err)
	}
	return nonce, nil
}

// EstimateFees suggests EIP-1559 gas fields: the node's tip suggestion and
// a fee cap of twice the current base fee plus the tip, which survives
// several consecutive full blocks.
func (c *Client) EstimateFees(ctx context.Context) (*FeeEstimate, error) {
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, apperr.Upstream("eth_maxPriorityFeePerGas failed", err)
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, apperr.Upstream("eth_getBlockByNumber failed", err)
	}
	if head.BaseFee == nil {
		return nil, apperr.Upstream("chain does not report a base fee; dynamic-fee transactions unsupported", nil)
	}

	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return &FeeEstimate{GasTipCap: tip, GasFeeCap: feeCap}, nil
}

// Broadcast submits a fully-signed transaction. Exactly one attempt; the
// caller decides what a failure means.
func (c *Client) Broadcast(ctx context.Context, tx *types.Transaction) error {
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return apperr.Upstream("eth_sendRawTransaction failed", err)
	}
	return nil
}

// Receipt looks up a mined transaction's receipt. An unmined hash is not
// distinguishable from one that never existed: the node answers "not found"
// for both.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, apperr.NotFound("transaction %s not found", hash.Hex())
	}
	if err != nil {
		return nil, apperr.Upstream("eth_getTransactionReceipt failed", err)
	}
	return receipt, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, pending, err := c.eth.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, false, apperr.NotFound("transaction %s not found", hash.Hex())
	}
	if err != nil {
		return nil, false, apperr.Upstream("eth_getTransactionByHash failed", err)
	}
	return tx, pending, nil
}
