package expiry

import "time"

// Offsets holds the two expiry offsets derived for a swap.
type Offsets struct {
	Alpha time.Duration
	Beta  time.Duration
}

// ComputeOffsets derives (alpha_offset, beta_offset) from config:
//
//	beta_offset  = alice_happy_path_duration
//	alpha_offset = max(beta_offset + safety_window, bob_happy_path_duration)
//
// preserving the invariant alpha_offset - beta_offset >= safety_window.
func ComputeOffsets(config Config) Offsets {
	aliceNeeds := aliceHappyPathDuration(config)
	bobNeeds := bobHappyPathDuration(config)

	betaOffset := aliceNeeds
	minimumSafe := betaOffset + config.SafetyWindow

	alphaOffset := minimumSafe
	if bobNeeds > alphaOffset {
		alphaOffset = bobNeeds
	}

	return Offsets{Alpha: alphaOffset, Beta: betaOffset}
}

// aliceHappyPathDuration sums the transition budgets Alice needs to go
// from nothing funded to a finalized beta redeem.
func aliceHappyPathDuration(c Config) time.Duration {
	return c.Start +
		c.BroadcastAlphaFund + c.MineAlphaFund + c.FinalityAlpha +
		c.BroadcastBetaFund + c.MineBetaFund + c.FinalityBeta +
		c.BroadcastBetaRedeem + c.MineBetaRedeem + c.FinalityBeta
}

// bobHappyPathDuration sums the transition budgets Bob needs to go from
// alpha funded by Alice to a finalized alpha redeem.
func bobHappyPathDuration(c Config) time.Duration {
	return c.FinalityAlpha +
		c.BroadcastBetaFund + c.MineBetaFund + c.FinalityBeta +
		c.BroadcastBetaRedeem + c.MineBetaRedeem +
		c.BroadcastAlphaRedeem + c.MineAlphaRedeem + c.FinalityAlpha
}

// Expiries are the absolute timestamps derived for a swap by adding the
// offsets to the swap's start time.
type Expiries struct {
	Alpha time.Time
	Beta  time.Time
}

// ToTimestamps converts offsets, anchored at startAt, into absolute
// expiry timestamps.
func ToTimestamps(startAt time.Time, offsets Offsets) Expiries {
	return Expiries{
		Alpha: startAt.Add(offsets.Alpha),
		Beta:  startAt.Add(offsets.Beta),
	}
}
