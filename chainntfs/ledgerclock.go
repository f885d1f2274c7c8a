package chainntfs

import (
	"context"
	"time"
)

// BitcoinClock adapts a BitcoinConnector's median-time-past into
// expiry.LedgerClock, the only view of Bitcoin time the expiry
// advisor is allowed: never the wall clock, always the chain's own
// notion of "now".
type BitcoinClock struct {
	Connector BitcoinConnector
}

func (c BitcoinClock) CurrentTime(ctx context.Context) (time.Time, error) {
	mtp, err := c.Connector.MedianTimePast(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(mtp, 0), nil
}

// EthereumClock adapts an EthereumConnector's chain-tip timestamp into
// expiry.LedgerClock.
type EthereumClock struct {
	Connector EthereumConnector
}

func (c EthereumClock) CurrentTime(ctx context.Context) (time.Time, error) {
	ts, err := c.Connector.LatestBlockTimestamp(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(ts), 0), nil
}
