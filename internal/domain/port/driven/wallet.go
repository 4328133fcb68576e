// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

// ErrNoSigner is returned by Wallet.Connect when no signing key is configured.
// The app keeps serving read-only status in that case.
var ErrNoSigner = errors.New("no signer configured: set SUBPANEL_PRIVATE_KEY or SUBPANEL_KEYSTORE_PATH")

// ErrTxReverted is returned by PendingTx.Wait when the transaction was mined
// but its receipt reports failure.
var ErrTxReverted = errors.New("transaction reverted")

// Wallet defines the driven port for acquiring a signer session. Each call to
// Connect produces a new session; callers must not cache sessions across actions.
type Wallet interface {
	Connect(ctx context.Context) (WalletSession, error)
}

// WalletSession is an authenticated account plus contract proxies bound to it.
type WalletSession interface {
	// Account returns the address that signs transactions in this session.
	Account() common.Address
	Token() TokenContract
	Subscription() SubscriptionContract
}

// PendingTx is a submitted, not yet confirmed, transaction.
type PendingTx interface {
	Hash() common.Hash
	// Wait blocks until the transaction is included in a block. A mined but
	// reverted transaction yields the receipt and ErrTxReverted.
	Wait(ctx context.Context) (*model.Receipt, error)
}

// TokenContract is a signer-bound proxy for the ERC-20 payment token.
type TokenContract interface {
	Address() common.Address
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (PendingTx, error)
}

// SubscriptionContract is a signer-bound proxy for the subscription manager.
type SubscriptionContract interface {
	Address() common.Address
	StartSubscription(ctx context.Context, duration model.Duration) (PendingTx, error)
	IncreaseSubscription(ctx context.Context, duration model.Duration) (PendingTx, error)
	CancelSubscription(ctx context.Context) (PendingTx, error)
}
