// Package ethereum implements the wallet, contract and chain reader ports
// using go-ethereum's ethclient and bind packages.
package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is everything the adapter needs from a node connection: contract
// calls and transactions, receipt lookup, and the chain id for signing.
// *ethclient.Client and the simulated backend's client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to rpcURL, or to fallbackURL when rpcURL is empty. The
// returned string is the endpoint actually used.
func Dial(ctx context.Context, rpcURL, fallbackURL string) (*ethclient.Client, string, error) {
	endpoint := rpcURL
	if endpoint == "" {
		endpoint = fallbackURL
		slog.Info("no rpc url configured, using fallback endpoint", "endpoint", endpoint)
	}
	if endpoint == "" {
		return nil, "", fmt.Errorf("dial rpc: no endpoint configured")
	}

	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("dial rpc %s: %w", endpoint, err)
	}
	return client, endpoint, nil
}
