// Command subctl runs subscription actions from the command line against the
// same configuration, signer and activity database as the subpanel server.
package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	ethadapter "github.com/ericfisherdev/subpanel/internal/adapter/driven/ethereum"
	sqliteadapter "github.com/ericfisherdev/subpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/subpanel/internal/application"
	"github.com/ericfisherdev/subpanel/internal/config"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

const usage = "usage: subctl [-v] start <days> | increase <days> | cancel | status"

var errUsage = errors.New(usage)

// command is a parsed subctl invocation.
type command struct {
	name     string
	duration model.Duration
}

func main() {
	fs := flag.NewFlagSet("subctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	verbose := fs.Bool("v", false, "log workflow progress to stderr")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cmd, err := parseArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cmd); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// parseArgs validates the positional arguments. Durations are checked here so
// a typo never reaches the wallet.
func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}

	switch args[0] {
	case "start", "increase":
		if len(args) != 2 {
			return command{}, errUsage
		}
		d, err := model.ParseDuration(args[1])
		if err != nil {
			return command{}, err
		}
		return command{name: args[0], duration: d}, nil
	case "cancel", "status":
		if len(args) != 1 {
			return command{}, errUsage
		}
		return command{name: args[0]}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func run(cmd command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	client, endpoint, err := ethadapter.Dial(ctx, cfg.RPCURL, cfg.FallbackRPCURL)
	if err != nil {
		return err
	}
	defer client.Close()
	slog.Info("rpc connected", "endpoint", endpoint)

	var key *ecdsa.PrivateKey
	if cfg.HasSigner() {
		key, err = ethadapter.LoadKey(cfg.PrivateKey, cfg.KeystorePath, cfg.KeystorePassword)
		if err != nil {
			return err
		}
	}
	wallet := ethadapter.NewWallet(client, key, cfg.ChainID, cfg.SubscriptionAddress, cfg.TokenAddress)
	account, _ := wallet.Account()

	subscriptionSvc := application.NewSubscriptionService(wallet, sqliteadapter.NewRunRepo(db), nil, cfg.ReceiptTimeout)
	statusSvc := application.NewStatusService(
		ethadapter.NewReader(client, cfg.SubscriptionAddress, cfg.TokenAddress),
		account,
	)

	return execute(ctx, cmd, subscriptionSvc, statusSvc, os.Stdout)
}

// execute runs cmd and prints its result to out.
func execute(
	ctx context.Context,
	cmd command,
	subscriptionSvc *application.SubscriptionService,
	statusSvc *application.StatusService,
	out io.Writer,
) error {
	var (
		result *model.WorkflowRun
		err    error
	)

	switch cmd.name {
	case "start":
		result, err = subscriptionSvc.StartSubscription(ctx, cmd.duration)
	case "increase":
		result, err = subscriptionSvc.IncreaseSubscription(ctx, cmd.duration)
	case "cancel":
		result, err = subscriptionSvc.CancelSubscription(ctx)
	case "status":
		return printStatus(ctx, statusSvc, out)
	default:
		return fmt.Errorf("unknown command %q", cmd.name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s subscription succeeded\n", result.Action)
	fmt.Fprintf(out, "run:         %s\n", result.ID)
	if result.Action.NeedsApproval() {
		fmt.Fprintf(out, "duration:    %s\n", result.Duration)
		fmt.Fprintf(out, "approve tx:  %s\n", result.ApproveTxHash.Hex())
	}
	fmt.Fprintf(out, "action tx:   %s\n", result.ActionTxHash.Hex())
	return nil
}

func printStatus(ctx context.Context, statusSvc *application.StatusService, out io.Writer) error {
	status, err := statusSvc.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "subscription:  %s\n", status.SubscriptionAddress.Hex())
	fmt.Fprintf(out, "token:         %s\n", status.TokenAddress.Hex())
	fmt.Fprintf(out, "initial price: %s\n", model.FormatTokenAmount(status.InitialPrice))
	if !status.HasAccount() {
		fmt.Fprintln(out, "account:       none (read-only)")
		return nil
	}
	fmt.Fprintf(out, "account:       %s\n", status.Account.Hex())
	fmt.Fprintf(out, "balance:       %s\n", model.FormatTokenAmount(status.Balance))
	fmt.Fprintf(out, "allowance:     %s\n", model.FormatTokenAmount(status.Allowance))
	return nil
}
