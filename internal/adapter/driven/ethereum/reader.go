package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChainReader = (*Reader)(nil)

// Reader implements driven.ChainReader with unsigned eth_call requests.
type Reader struct {
	subscriptionAddr common.Address
	tokenAddr        common.Address
	subscription     *bind.BoundContract
	token            *bind.BoundContract
}

// NewReader creates a Reader for the two contracts on backend.
func NewReader(backend bind.ContractCaller, subscription, token common.Address) *Reader {
	return &Reader{
		subscriptionAddr: subscription,
		tokenAddr:        token,
		subscription:     bind.NewBoundContract(subscription, subscriptionServiceABI, backend, nil, nil),
		token:            bind.NewBoundContract(token, paymentTokenABI, backend, nil, nil),
	}
}

// SubscriptionAddress returns the subscription contract address.
func (r *Reader) SubscriptionAddress() common.Address { return r.subscriptionAddr }

// TokenAddress returns the payment token address.
func (r *Reader) TokenAddress() common.Address { return r.tokenAddr }

// InitialPrice calls initialPrice() on the subscription contract.
func (r *Reader) InitialPrice(ctx context.Context) (*big.Int, error) {
	return callUint256(ctx, r.subscription, "initialPrice")
}

// TokenBalance calls balanceOf(owner) on the payment token.
func (r *Reader) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return callUint256(ctx, r.token, "balanceOf", owner)
}

// Allowance calls allowance(owner, spender) on the payment token.
func (r *Reader) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return callUint256(ctx, r.token, "allowance", owner, spender)
}

// Decimals calls decimals() on the payment token.
func (r *Reader) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := r.token.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("call decimals: expected 1 output, got %d", len(out))
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("call decimals: unexpected output type %T", out[0])
	}
	return d, nil
}

func callUint256(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("call %s: expected 1 output, got %d", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call %s: unexpected output type %T", method, out[0])
	}
	return v, nil
}
