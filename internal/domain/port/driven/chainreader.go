package driven

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader defines the driven port for read-only contract calls. It works
// without a signer, falling back to a public RPC endpoint when needed.
type ChainReader interface {
	SubscriptionAddress() common.Address
	TokenAddress() common.Address

	// InitialPrice returns the subscription contract's initialPrice().
	InitialPrice(ctx context.Context) (*big.Int, error)
	// TokenBalance returns balanceOf(owner) on the payment token.
	TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	// Allowance returns allowance(owner, spender) on the payment token.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}
