package application

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// StatusService assembles the read-only subscription snapshot shown beside
// the action buttons.
type StatusService struct {
	reader  driven.ChainReader
	account common.Address
}

// NewStatusService creates a StatusService. account is the configured signer
// address, or the zero address when the app runs read-only.
func NewStatusService(reader driven.ChainReader, account common.Address) *StatusService {
	return &StatusService{reader: reader, account: account}
}

// Status reads the initial price and, when an account is configured, the
// account's token balance and its allowance to the subscription contract.
// The reads run concurrently; the first error aborts the snapshot.
func (s *StatusService) Status(ctx context.Context) (*model.SubscriptionStatus, error) {
	status := &model.SubscriptionStatus{
		SubscriptionAddress: s.reader.SubscriptionAddress(),
		TokenAddress:        s.reader.TokenAddress(),
		Account:             s.account,
		ReadOnly:            s.ReadOnly(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		price, err := s.reader.InitialPrice(gctx)
		if err != nil {
			return fmt.Errorf("read initial price: %w", err)
		}
		status.InitialPrice = price
		return nil
	})

	if status.HasAccount() {
		g.Go(func() error {
			balance, err := s.reader.TokenBalance(gctx, s.account)
			if err != nil {
				return fmt.Errorf("read token balance: %w", err)
			}
			status.Balance = balance
			return nil
		})
		g.Go(func() error {
			allowance, err := s.reader.Allowance(gctx, s.account, status.SubscriptionAddress)
			if err != nil {
				return fmt.Errorf("read allowance: %w", err)
			}
			status.Allowance = allowance
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return status, nil
}

// ReadOnly reports whether no signer account is configured.
func (s *StatusService) ReadOnly() bool {
	return s.account == (common.Address{})
}
