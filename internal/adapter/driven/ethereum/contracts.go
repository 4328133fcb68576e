package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.TokenContract        = (*TokenContract)(nil)
	_ driven.SubscriptionContract = (*SubscriptionContract)(nil)
	_ driven.PendingTx            = (*pendingTx)(nil)
)

// boundProxy is an (address, ABI, signer) triple.
type boundProxy struct {
	backend  Backend
	address  common.Address
	contract *bind.BoundContract
	opts     *bind.TransactOpts
}

// transact sends method(params...) with a copy of the signer options bound to ctx.
func (p boundProxy) transact(ctx context.Context, method string, params ...interface{}) (driven.PendingTx, error) {
	opts := *p.opts
	opts.Context = ctx

	tx, err := p.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	return &pendingTx{backend: p.backend, tx: tx}, nil
}

// TokenContract is the signer-bound payment token proxy.
type TokenContract struct {
	boundProxy
}

func newTokenContract(backend Backend, address common.Address, opts *bind.TransactOpts) *TokenContract {
	return &TokenContract{boundProxy{
		backend:  backend,
		address:  address,
		contract: bind.NewBoundContract(address, paymentTokenABI, backend, backend, backend),
		opts:     opts,
	}}
}

// Address returns the token contract address.
func (c *TokenContract) Address() common.Address { return c.address }

// Approve calls approve(spender, amount).
func (c *TokenContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (driven.PendingTx, error) {
	return c.transact(ctx, "approve", spender, amount)
}

// SubscriptionContract is the signer-bound subscription manager proxy.
type SubscriptionContract struct {
	boundProxy
}

func newSubscriptionContract(backend Backend, address common.Address, opts *bind.TransactOpts) *SubscriptionContract {
	return &SubscriptionContract{boundProxy{
		backend:  backend,
		address:  address,
		contract: bind.NewBoundContract(address, subscriptionServiceABI, backend, backend, backend),
		opts:     opts,
	}}
}

// Address returns the subscription contract address.
func (c *SubscriptionContract) Address() common.Address { return c.address }

// StartSubscription calls startSubscription(days).
func (c *SubscriptionContract) StartSubscription(ctx context.Context, duration model.Duration) (driven.PendingTx, error) {
	return c.transact(ctx, "startSubscription", big.NewInt(duration.Days()))
}

// IncreaseSubscription calls increaseSubscription(days).
func (c *SubscriptionContract) IncreaseSubscription(ctx context.Context, duration model.Duration) (driven.PendingTx, error) {
	return c.transact(ctx, "increaseSubscription", big.NewInt(duration.Days()))
}

// CancelSubscription calls cancelSubscription().
func (c *SubscriptionContract) CancelSubscription(ctx context.Context) (driven.PendingTx, error) {
	return c.transact(ctx, "cancelSubscription")
}

type pendingTx struct {
	backend Backend
	tx      *types.Transaction
}

func (p *pendingTx) Hash() common.Hash { return p.tx.Hash() }

// Wait polls for the receipt until the transaction is mined or ctx ends.
func (p *pendingTx) Wait(ctx context.Context) (*model.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined: %w", err)
	}

	r := &model.Receipt{
		TxHash:    receipt.TxHash,
		GasUsed:   receipt.GasUsed,
		Succeeded: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if !r.Succeeded {
		return r, driven.ErrTxReverted
	}
	return r, nil
}
