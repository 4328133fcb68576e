package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/subpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/subpanel/internal/application"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// --- Mock implementations ---

var (
	account      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	subscription = common.HexToAddress("0xd3fa55cb81FDFEBf8c239F83598e1958B0995b7D")
	token        = common.HexToAddress("0xc171A1D6280852Bd3Df5351AEE75A60FDb96fC85")
)

type mockTx struct {
	hash    common.Hash
	waitErr error
}

func (m *mockTx) Hash() common.Hash { return m.hash }
func (m *mockTx) Wait(ctx context.Context) (*model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.waitErr != nil {
		return nil, m.waitErr
	}
	return &model.Receipt{TxHash: m.hash, Succeeded: true}, nil
}

type mockContracts struct {
	calls      []string
	actionWait error
	onApprove  func()
}

func (m *mockContracts) Address() common.Address { return subscription }

func (m *mockContracts) Approve(_ context.Context, _ common.Address, _ *big.Int) (driven.PendingTx, error) {
	m.calls = append(m.calls, "approve")
	if m.onApprove != nil {
		m.onApprove()
	}
	return &mockTx{hash: common.HexToHash("0x01")}, nil
}

func (m *mockContracts) StartSubscription(_ context.Context, _ model.Duration) (driven.PendingTx, error) {
	m.calls = append(m.calls, "start")
	return &mockTx{hash: common.HexToHash("0x02"), waitErr: m.actionWait}, nil
}

func (m *mockContracts) IncreaseSubscription(_ context.Context, _ model.Duration) (driven.PendingTx, error) {
	m.calls = append(m.calls, "increase")
	return &mockTx{hash: common.HexToHash("0x02"), waitErr: m.actionWait}, nil
}

func (m *mockContracts) CancelSubscription(_ context.Context) (driven.PendingTx, error) {
	m.calls = append(m.calls, "cancel")
	return &mockTx{hash: common.HexToHash("0x03"), waitErr: m.actionWait}, nil
}

type tokenView struct{ *mockContracts }

func (t tokenView) Address() common.Address { return token }

type mockSession struct{ contracts *mockContracts }

func (s *mockSession) Account() common.Address { return account }
func (s *mockSession) Token() driven.TokenContract {
	return tokenView{s.contracts}
}
func (s *mockSession) Subscription() driven.SubscriptionContract { return s.contracts }

type mockWallet struct {
	contracts *mockContracts
	err       error
}

func (m *mockWallet) Connect(_ context.Context) (driven.WalletSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &mockSession{contracts: m.contracts}, nil
}

type mockRunStore struct {
	runs []model.WorkflowRun
	err  error
}

func (m *mockRunStore) Save(_ context.Context, run model.WorkflowRun) error {
	m.runs = append([]model.WorkflowRun{run}, m.runs...)
	return nil
}

func (m *mockRunStore) Get(_ context.Context, id string) (*model.WorkflowRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, nil
}

func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]model.WorkflowRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runs[:min(limit, len(m.runs))], nil
}

type mockReader struct {
	err error
}

func (m *mockReader) SubscriptionAddress() common.Address { return subscription }
func (m *mockReader) TokenAddress() common.Address        { return token }
func (m *mockReader) InitialPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), m.err
}
func (m *mockReader) TokenBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return model.DepositAmount(model.Duration365), nil
}
func (m *mockReader) Allowance(_ context.Context, _, _ common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

// --- Test helpers ---

type testEnv struct {
	contracts *mockContracts
	wallet    *mockWallet
	runs      *mockRunStore
	reader    *mockReader
	server    http.Handler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	contracts := &mockContracts{}
	env := &testEnv{
		contracts: contracts,
		wallet:    &mockWallet{contracts: contracts},
		runs:      &mockRunStore{},
		reader:    &mockReader{},
	}

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	subSvc := application.NewSubscriptionService(env.wallet, env.runs, nil, time.Second)
	statusSvc := application.NewStatusService(env.reader, account)
	h := httphandler.NewHandler(subSvc, statusSvc, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	env.server = httphandler.ApplyMiddleware(mux, logger, httphandler.MiddlewareOptions{})

	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doContext(t, context.Background(), method, path, body)
}

func (e *testEnv) doContext(t *testing.T, ctx context.Context, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(ctx, method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
}

func TestStartSubscription_Success(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/start", `{"duration":90}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.ActionResponse](t, rec)
	require.NotNil(t, resp.Run)
	assert.Equal(t, "start", resp.Run.Action)
	assert.Equal(t, 90, resp.Run.Duration)
	assert.Equal(t, "succeeded", resp.Run.Outcome)
	assert.Equal(t, common.HexToHash("0x02").Hex(), resp.Run.ActionTxHash)
	assert.Equal(t, []string{"approve", "start"}, env.contracts.calls)
}

func TestStartSubscription_SurvivesClientDisconnect(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.contracts.onApprove = cancel

	rec := env.doContext(t, ctx, http.MethodPost, "/api/v1/subscription/start", `{"duration":30}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.ActionResponse](t, rec)
	assert.Equal(t, "succeeded", resp.Run.Outcome)
	assert.Equal(t, []string{"approve", "start"}, env.contracts.calls)
}

func TestIncreaseSubscription_Success(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/increase", `{"duration":365}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"approve", "increase"}, env.contracts.calls)
}

func TestCancelSubscription_Success(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/cancel", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.ActionResponse](t, rec)
	assert.Empty(t, resp.Run.ApproveTxHash)
	assert.Equal(t, []string{"cancel"}, env.contracts.calls)
}

func TestStartSubscription_InvalidDuration(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/start", `{"duration":45}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.contracts.calls)
	assert.Empty(t, env.runs.runs)
}

func TestStartSubscription_InvalidBody(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/start", `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartSubscription_NoSigner(t *testing.T) {
	env := setupEnv(t)
	env.wallet.err = driven.ErrNoSigner

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/start", `{"duration":30}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[httphandler.ActionResponse](t, rec)
	require.NotNil(t, resp.Run)
	assert.Equal(t, "failed", resp.Run.Outcome)
	assert.Contains(t, resp.Error, "no signer configured")
}

func TestCancelSubscription_Reverted(t *testing.T) {
	env := setupEnv(t)
	env.contracts.actionWait = driven.ErrTxReverted

	rec := env.do(t, http.MethodPost, "/api/v1/subscription/cancel", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[httphandler.ActionResponse](t, rec)
	assert.Equal(t, "failed", resp.Run.Outcome)
	assert.Contains(t, resp.Error, "transaction reverted")
}

func TestStatus(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.StatusResponse](t, rec)
	assert.Equal(t, subscription.Hex(), resp.SubscriptionAddress)
	assert.Equal(t, token.Hex(), resp.TokenAddress)
	assert.Equal(t, account.Hex(), resp.Account)
	assert.Equal(t, "1", resp.InitialPrice)
	assert.Equal(t, "365000000000000000000", resp.Balance)
	assert.Equal(t, "0", resp.Allowance)
	assert.False(t, resp.ReadOnly)
}

func TestStatus_ChainError(t *testing.T) {
	env := setupEnv(t)
	env.reader.err = errors.New("dial tcp: connection refused")

	rec := env.do(t, http.MethodGet, "/api/v1/status", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListRuns(t *testing.T) {
	env := setupEnv(t)
	env.do(t, http.MethodPost, "/api/v1/subscription/start", `{"duration":30}`)
	env.do(t, http.MethodPost, "/api/v1/subscription/cancel", "")

	rec := env.do(t, http.MethodGet, "/api/v1/runs?limit=1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]httphandler.RunResponse](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "cancel", runs[0].Action)
}

func TestListRuns_InvalidLimit(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/runs?limit=abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns_StoreError(t *testing.T) {
	env := setupEnv(t)
	env.runs.err = errors.New("database is locked")

	rec := env.do(t, http.MethodGet, "/api/v1/runs", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/subscription/cancel", "")
	created := decode[httphandler.ActionResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/api/v1/runs/"+created.Run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[httphandler.RunResponse](t, rec)
	assert.Equal(t, created.Run.ID, got.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/subscription/start", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
