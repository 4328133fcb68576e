package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	ethadapter "github.com/ericfisherdev/subpanel/internal/adapter/driven/ethereum"
	metricsadapter "github.com/ericfisherdev/subpanel/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/subpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/subpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/subpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/subpanel/internal/application"
	"github.com/ericfisherdev/subpanel/internal/config"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"subscription_address", cfg.SubscriptionAddress.Hex(),
		"token_address", cfg.TokenAddress.Hex(),
		"receipt_timeout", cfg.ReceiptTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", db.Path())

	// 4. Connect to the chain. The fallback endpoint is used when no RPC URL
	// is configured.
	client, endpoint, err := ethadapter.Dial(ctx, cfg.RPCURL, cfg.FallbackRPCURL)
	if err != nil {
		return err
	}
	defer client.Close()
	slog.Info("rpc connected", "endpoint", endpoint)

	// 5. Load the signer. Without one the app serves read-only status.
	var key *ecdsa.PrivateKey
	if cfg.HasSigner() {
		key, err = ethadapter.LoadKey(cfg.PrivateKey, cfg.KeystorePath, cfg.KeystorePassword)
		if err != nil {
			return err
		}
	}
	wallet := ethadapter.NewWallet(client, key, cfg.ChainID, cfg.SubscriptionAddress, cfg.TokenAddress)
	account, ok := wallet.Account()
	if ok {
		slog.Info("signer loaded", "account", account.Hex())
	} else {
		slog.Warn("no signer configured, running read-only")
	}

	reader := ethadapter.NewReader(client, cfg.SubscriptionAddress, cfg.TokenAddress)
	checkTokenDecimals(ctx, reader)

	// 6. Wire services.
	recorder := metricsadapter.NewRecorder()
	runStore := sqliteadapter.NewRunRepo(db)
	subscriptionSvc := application.NewSubscriptionService(wallet, runStore, recorder, cfg.ReceiptTimeout)
	statusSvc := application.NewStatusService(reader, account)

	planNotes, err := webhandler.LoadPlanNotes(cfg.PlanNotesPath)
	if err != nil {
		return err
	}

	// 7. Register routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(subscriptionSvc, statusSvc, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(subscriptionSvc, statusSvc, planNotes, slog.Default()))
	mux.Handle("GET /metrics", recorder.Handler())

	// 8. Apply middleware.
	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()
	handler := httphandler.ApplyMiddleware(mux, slog.Default(), httphandler.MiddlewareOptions{
		Limiter:           limiter,
		Observer:          recorder,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	// Receipt waits can run for ReceiptTimeout twice per request.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2*cfg.ReceiptTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("subpanel started",
		"listen_addr", cfg.ListenAddr,
		"read_only", statusSvc.ReadOnly(),
		"rate_limit", cfg.RateLimit,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLimiter returns the action rate limiter for cfg, or nil when rate
// limiting is disabled. The returned func releases the Redis client.
func newLimiter(cfg *config.Config) (httphandler.Limiter, func()) {
	if cfg.RateLimit == 0 {
		return nil, func() {}
	}

	if cfg.RedisAddr == "" {
		slog.Info("rate limiter", "backend", "local", "per_minute", cfg.RateLimit)
		return httphandler.NewLocalLimiter(cfg.RateLimit, time.Minute), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	slog.Info("rate limiter", "backend", "redis", "addr", cfg.RedisAddr, "per_minute", cfg.RateLimit)
	return httphandler.NewRedisLimiter(rdb, cfg.RateLimit, time.Minute), func() {
		if err := rdb.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}
}

// checkTokenDecimals warns when the token's decimals differ from the scaling
// used for deposits. It never blocks startup.
func checkTokenDecimals(ctx context.Context, reader *ethadapter.Reader) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	decimals, err := reader.Decimals(ctx)
	if err != nil {
		slog.Warn("could not read token decimals", "error", err)
		return
	}
	if int(decimals) != model.TokenDecimals {
		slog.Warn("token decimals differ from deposit scaling",
			"token_decimals", decimals,
			"deposit_decimals", model.TokenDecimals,
		)
	}
}
