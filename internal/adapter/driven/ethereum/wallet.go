package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Wallet        = (*Wallet)(nil)
	_ driven.WalletSession = (*session)(nil)
)

// LoadKey returns the signing key from a hex private key or, when that is
// empty, from an encrypted keystore file. It returns (nil, nil) when neither
// source is configured.
func LoadKey(privateKeyHex, keystorePath, keystorePassword string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	}

	if keystorePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", keystorePath, err)
	}
	k, err := keystore.DecryptKey(data, keystorePassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", keystorePath, err)
	}
	return k.PrivateKey, nil
}

// Wallet implements driven.Wallet with a locally held key. Every Connect
// builds a new transactor, so no signer outlives the action that asked for it.
type Wallet struct {
	backend      Backend
	key          *ecdsa.PrivateKey // nil when running read-only
	chainID      *big.Int          // nil to ask the node on each Connect
	subscription common.Address
	token        common.Address
}

// NewWallet creates a Wallet. key may be nil, in which case Connect always
// returns driven.ErrNoSigner.
func NewWallet(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, subscription, token common.Address) *Wallet {
	return &Wallet{
		backend:      backend,
		key:          key,
		chainID:      chainID,
		subscription: subscription,
		token:        token,
	}
}

// Account returns the signer address and true, or the zero address and false
// when no key is configured.
func (w *Wallet) Account() (common.Address, bool) {
	if w.key == nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(w.key.PublicKey), true
}

// Connect acquires a signer for the current action and binds both contract
// proxies to it.
func (w *Wallet) Connect(ctx context.Context) (driven.WalletSession, error) {
	if w.key == nil {
		return nil, driven.ErrNoSigner
	}

	chainID := w.chainID
	if chainID == nil {
		id, err := w.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		chainID = id
	}

	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	return &session{
		account:      opts.From,
		token:        newTokenContract(w.backend, w.token, opts),
		subscription: newSubscriptionContract(w.backend, w.subscription, opts),
	}, nil
}

type session struct {
	account      common.Address
	token        *TokenContract
	subscription *SubscriptionContract
}

func (s *session) Account() common.Address                   { return s.account }
func (s *session) Token() driven.TokenContract               { return s.token }
func (s *session) Subscription() driven.SubscriptionContract { return s.subscription }
