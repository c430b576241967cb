// Package payments decides whether an account has paid for the feed. It
// aggregates balances across an account's addresses, mints new addresses and
// applies the monthly threshold.
package payments

import (
	"context"
	"sort"

	"feedgate/internal/interfaces"
	"feedgate/internal/metrics"

	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/sync/errgroup"
)

// AggregateBalance returns the total spendable amount held by addresses. The
// per-address queries run concurrently; the first failure cancels the rest
// and is returned without any partial sum.
func AggregateBalance(ctx context.Context, source interfaces.BalanceSource, addresses []string) (btcutil.Amount, error) {
	if len(addresses) == 0 {
		return 0, nil
	}

	sorted := append([]string(nil), addresses...)
	sort.Strings(sorted)

	balances := make([]btcutil.Amount, len(sorted))
	g, gCtx := errgroup.WithContext(ctx)
	for i, addr := range sorted {
		i, addr := i, addr
		g.Go(func() error {
			balance, err := source.AddressBalance(gCtx, addr)
			if err != nil {
				return err
			}
			balances[i] = balance
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.BalanceChecks.WithLabelValues("failed").Inc()
		return 0, err
	}

	var total btcutil.Amount
	for _, b := range balances {
		total += b
	}

	metrics.BalanceChecks.WithLabelValues("ok").Inc()
	return total, nil
}
