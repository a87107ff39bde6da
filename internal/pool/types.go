// Package pool implements the pooled-staking and dividend-distribution
// ledger: proportional share accounting over an external reserve asset, a
// dividend registry with a round-robin payout scheduler, and the privileged
// admin surface. All state lives in a single service object with role-gated
// methods; the asset, game approvals, and event delivery are injected
// capabilities.
package pool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeworks/gosp/internal/messaging"
)

// Fee and payout ratios. These are protocol constants, not tunables.
const (
	stakeFeePercent     = 3    // taken on stake, captured by dilution
	exitReturnPercent   = 97   // fraction of stake value returned on exit
	dividendFeeDivisor  = 25   // 4% fee on dividend withdrawal
	recipientFeeDivisor = 1000 // 0.1% fee on dividend-recipient change
)

// Params holds the pool's fixed configuration.
type Params struct {
	// Admin is the single privileged identity.
	Admin common.Address

	// PoolAddress is the pool's own identity: it holds the reserve on the
	// asset ledger, the committed dividend shares on the share ledger, and
	// marks the sentinel dividend entry.
	PoolAddress common.Address

	// DistributionThreshold is the reserve level below which the scheduler
	// does nothing.
	DistributionThreshold *uint256.Int

	// PayoutBudget is the fixed per-cycle amount split pro-rata across a
	// full scheduler pass.
	PayoutBudget *uint256.Int
}

// DividendEntry is one live record in the dividend registry. Entry 0 is the
// reserved sentinel: its Provider is the pool identity (or an admin-installed
// collector) and it is never removed.
type DividendEntry struct {
	Provider         common.Address
	Shares           *uint256.Int
	CumulativeProfit *uint256.Int
}

// Stats is a read-only snapshot of the pool state.
type Stats struct {
	Reserve                 *uint256.Int
	TotalShares             *uint256.Int
	DividendTotal           *uint256.Int
	CurrentWeight           *uint256.Int
	DistributionAccumulator *uint256.Int
	Cursor                  int
	Entries                 int
	StakingActive           bool
}

// Approver reports whether a caller is an approved game.
type Approver interface {
	IsApproved(game common.Address) bool
}

// Notifier receives one event per observable pool operation. Delivery is
// best-effort from the core's perspective; durability is the sink's job.
type Notifier interface {
	Notify(ctx context.Context, event messaging.Event)
}

// mulDiv returns a*b/den. Callers guarantee den > 0.
func mulDiv(a, b, den *uint256.Int) *uint256.Int {
	v := new(uint256.Int).Mul(a, b)
	return v.Div(v, den)
}

// percentOf returns amount*pct/100.
func percentOf(amount *uint256.Int, pct uint64) *uint256.Int {
	v := new(uint256.Int).Mul(amount, uint256.NewInt(pct))
	return v.Div(v, uint256.NewInt(100))
}
