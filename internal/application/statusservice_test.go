package application

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChainReader struct {
	price     *big.Int
	balance   *big.Int
	allowance *big.Int
	priceErr  error
	spender   common.Address
}

func (m *mockChainReader) SubscriptionAddress() common.Address { return testSubscription }
func (m *mockChainReader) TokenAddress() common.Address        { return testToken }

func (m *mockChainReader) InitialPrice(_ context.Context) (*big.Int, error) {
	return m.price, m.priceErr
}

func (m *mockChainReader) TokenBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return m.balance, nil
}

func (m *mockChainReader) Allowance(_ context.Context, _ common.Address, spender common.Address) (*big.Int, error) {
	m.spender = spender
	return m.allowance, nil
}

func TestStatusService_WithAccount(t *testing.T) {
	reader := &mockChainReader{
		price:     big.NewInt(1),
		balance:   big.NewInt(500),
		allowance: big.NewInt(30),
	}
	svc := NewStatusService(reader, testAccount)

	status, err := svc.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, svc.ReadOnly())
	assert.False(t, status.ReadOnly)
	assert.Equal(t, testAccount, status.Account)
	assert.Equal(t, int64(1), status.InitialPrice.Int64())
	assert.Equal(t, int64(500), status.Balance.Int64())
	assert.Equal(t, int64(30), status.Allowance.Int64())
	assert.Equal(t, testSubscription, reader.spender)
}

func TestStatusService_ReadOnly(t *testing.T) {
	reader := &mockChainReader{price: big.NewInt(2)}
	svc := NewStatusService(reader, common.Address{})

	status, err := svc.Status(context.Background())

	require.NoError(t, err)
	assert.True(t, svc.ReadOnly())
	assert.True(t, status.ReadOnly)
	assert.False(t, status.HasAccount())
	assert.Nil(t, status.Balance)
	assert.Nil(t, status.Allowance)
	assert.Equal(t, testToken, status.TokenAddress)
}

func TestStatusService_ReadError(t *testing.T) {
	reader := &mockChainReader{priceErr: errors.New("rpc unavailable")}
	svc := NewStatusService(reader, common.Address{})

	status, err := svc.Status(context.Background())

	require.Error(t, err)
	assert.Nil(t, status)
	assert.Contains(t, err.Error(), "read initial price")
}
