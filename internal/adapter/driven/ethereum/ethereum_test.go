package ethereum

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Init code deploying a runtime that returns uint256(1) for any call.
const returnsOneBytecode = "0x600a600c600039600a6000f3" + "600160005260206000f3"

// Init code deploying a runtime that reverts every call.
const revertsBytecode = "0x6005600c60003960056000f3" + "60006000fd"

type simChain struct {
	sim     *simulated.Backend
	backend Backend
	key     *ecdsa.PrivateKey
}

func newSimChain(t *testing.T) *simChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	funds := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	sim := simulated.NewBackend(types.GenesisAlloc{
		crypto.PubkeyToAddress(key.PublicKey): {Balance: funds},
	})
	t.Cleanup(func() { _ = sim.Close() })

	return &simChain{sim: sim, backend: sim.Client(), key: key}
}

// deploy creates a contract from init code and mines it.
func (c *simChain) deploy(t *testing.T, initCode string) common.Address {
	t.Helper()

	chainID, err := c.backend.ChainID(context.Background())
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	require.NoError(t, err)

	addr, _, _, err := bind.DeployContract(opts, paymentTokenABI, hexutil.MustDecode(initCode), c.backend)
	require.NoError(t, err)
	c.sim.Commit()
	return addr
}

func TestABI_Selectors(t *testing.T) {
	assert.Equal(t, "095ea7b3", common.Bytes2Hex(paymentTokenABI.Methods["approve"].ID))
	assert.Equal(t, "dd62ed3e", common.Bytes2Hex(paymentTokenABI.Methods["allowance"].ID))
	assert.Equal(t, "70a08231", common.Bytes2Hex(paymentTokenABI.Methods["balanceOf"].ID))

	for _, name := range []string{"startSubscription", "increaseSubscription", "cancelSubscription", "initialPrice"} {
		_, ok := subscriptionServiceABI.Methods[name]
		assert.True(t, ok, "missing method %s", name)
	}
}

func TestABI_PackApproveEncodesExactAmount(t *testing.T) {
	spender := common.HexToAddress("0xd3fa55cb81FDFEBf8c239F83598e1958B0995b7D")

	data, err := paymentTokenABI.Pack("approve", spender, model.DepositAmount(model.Duration90))
	require.NoError(t, err)

	require.Len(t, data, 4+32+32)
	amount := new(big.Int).SetBytes(data[36:])
	assert.Equal(t, "90000000000000000000", amount.String())
	assert.Equal(t, spender, common.BytesToAddress(data[4:36]))
}

func TestLoadKey_Hex(t *testing.T) {
	want, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(want))

	got, err := LoadKey(hexKey, "", "")

	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(want.PublicKey), crypto.PubkeyToAddress(got.PublicKey))
}

func TestLoadKey_InvalidHex(t *testing.T) {
	_, err := LoadKey("not-a-key", "", "")
	assert.Error(t, err)
}

func TestLoadKey_Keystore(t *testing.T) {
	want, err := crypto.GenerateKey()
	require.NoError(t, err)

	k := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(want.PublicKey),
		PrivateKey: want,
	}
	data, err := keystore.EncryptKey(k, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := LoadKey("", path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, k.Address, crypto.PubkeyToAddress(got.PublicKey))

	_, err = LoadKey("", path, "wrong")
	assert.Error(t, err)
}

func TestLoadKey_NoneConfigured(t *testing.T) {
	key, err := LoadKey("", "", "")

	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestWallet_ConnectWithoutKey(t *testing.T) {
	w := NewWallet(nil, nil, nil, common.Address{}, common.Address{})

	_, err := w.Connect(context.Background())
	assert.ErrorIs(t, err, driven.ErrNoSigner)

	_, ok := w.Account()
	assert.False(t, ok)
}

func TestWallet_ApproveAndActMined(t *testing.T) {
	chain := newSimChain(t)
	contract := chain.deploy(t, returnsOneBytecode)
	ctx := context.Background()

	w := NewWallet(chain.backend, chain.key, nil, contract, contract)
	account, ok := w.Account()
	require.True(t, ok)

	sess, err := w.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, account, sess.Account())
	assert.Equal(t, contract, sess.Subscription().Address())

	approve, err := sess.Token().Approve(ctx, sess.Subscription().Address(), model.DepositAmount(model.Duration30))
	require.NoError(t, err)
	chain.sim.Commit()

	receipt, err := approve.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded)
	assert.Equal(t, approve.Hash(), receipt.TxHash)
	assert.NotZero(t, receipt.BlockNumber)

	start, err := sess.Subscription().StartSubscription(ctx, model.Duration30)
	require.NoError(t, err)
	chain.sim.Commit()

	_, err = start.Wait(ctx)
	require.NoError(t, err)
}

func TestWallet_ConnectBuildsNewSigner(t *testing.T) {
	chain := newSimChain(t)
	w := NewWallet(chain.backend, chain.key, nil, common.Address{}, common.Address{})

	first, err := w.Connect(context.Background())
	require.NoError(t, err)
	second, err := w.Connect(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Account(), second.Account())
}

func TestWallet_RevertingContractFailsToSend(t *testing.T) {
	chain := newSimChain(t)
	contract := chain.deploy(t, revertsBytecode)

	w := NewWallet(chain.backend, chain.key, nil, contract, contract)
	sess, err := w.Connect(context.Background())
	require.NoError(t, err)

	_, err = sess.Subscription().CancelSubscription(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send cancelSubscription")
}

func TestWallet_NoCodeAtAddress(t *testing.T) {
	chain := newSimChain(t)
	empty := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	w := NewWallet(chain.backend, chain.key, nil, empty, empty)
	sess, err := w.Connect(context.Background())
	require.NoError(t, err)

	_, err = sess.Token().Approve(context.Background(), empty, big.NewInt(1))

	assert.ErrorIs(t, err, bind.ErrNoCode)
}

func TestReader_Calls(t *testing.T) {
	chain := newSimChain(t)
	contract := chain.deploy(t, returnsOneBytecode)
	ctx := context.Background()
	owner := crypto.PubkeyToAddress(chain.key.PublicKey)

	r := NewReader(chain.backend, contract, contract)

	price, err := r.InitialPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), price.Int64())

	balance, err := r.TokenBalance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance.Int64())

	allowance, err := r.Allowance(ctx, owner, contract)
	require.NoError(t, err)
	assert.Equal(t, int64(1), allowance.Int64())

	decimals, err := r.Decimals(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), decimals)
}

func TestReader_NoCode(t *testing.T) {
	chain := newSimChain(t)
	empty := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	r := NewReader(chain.backend, empty, empty)

	_, err := r.InitialPrice(context.Background())
	assert.ErrorIs(t, err, bind.ErrNoCode)
}

func TestDial_NoEndpoint(t *testing.T) {
	_, _, err := Dial(context.Background(), "", "")
	assert.Error(t, err)
}
