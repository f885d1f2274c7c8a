// Package contractcourt watches the two HTLC ledgers for the events the
// swap state machine waits on: funding, deployment, redeem, and refund.
// The polling-retry shape follows htlcTimeoutResolver.Resolve's
// original loop-on-a-select shape (contractcourt/htlc_timeout_resolver.go),
// generalized here to a plain check-function since neither ledger
// connector pushes deploy/redeem/refund notifications the way a
// websocket-backed ChainNotifier pushes confirmations.
package contractcourt

import (
	"context"
	"time"

	"github.com/btcsuite/btclog"
)

// pollUntil repeatedly calls check until it reports done or ctx is
// cancelled. Errors from check are treated as transient connector I/O
// failures: logged and retried indefinitely, never returned. A check
// that needs to surface a fatal condition does so by returning
// done=true with a result the caller inspects, not by erroring.
func pollUntil[T any](ctx context.Context, log btclog.Logger, interval time.Duration, check func() (T, bool, error)) (T, error) {
	var zero T

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, done, err := check()
		switch {
		case err != nil:
			log.Debugf("watcher poll: %v", err)
		case done:
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollUntilStable is pollUntil extended with a finality check: once
// check reports done, verify is called to confirm the matched block is
// still on the connector's best chain before the match is returned. A
// reorg that evicted the matched block makes verify report false, in
// which case the match is discarded and polling resumes rather than
// returning a result built on orphaned history; the next check() call
// naturally searches the post-reorg chain since the connectors report
// against the live best chain on every call.
func pollUntilStable[T any](ctx context.Context, log btclog.Logger, interval time.Duration,
	check func() (result T, verify func(context.Context) (bool, error), done bool, err error),
) (T, error) {
	var zero T

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, verify, done, err := check()
		switch {
		case err != nil:
			log.Debugf("watcher poll: %v", err)
		case done:
			stillBest, verr := verify(ctx)
			switch {
			case verr != nil:
				log.Debugf("watcher poll: verify best chain: %v", verr)
			case stillBest:
				return result, nil
			default:
				log.Warnf("watcher poll: match was reorged out of the best chain; resuming search")
			}
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
