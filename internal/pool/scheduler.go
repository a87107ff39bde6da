package pool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakeworks/gosp/internal/messaging"
)

// Distribute runs one scheduler tick: at most one dividend entry is acted on
// per call. The cursor walks the registry from the highest slot down to the
// sentinel; a full descending pass is one distribution cycle. Guarded, since
// the payout transfer hands control to an external recipient.
func (p *Pool) Distribute(ctx context.Context) error {
	if err := p.guard.enter(); err != nil {
		return err
	}
	defer p.guard.exit()
	return p.distribute(ctx)
}

func (p *Pool) distribute(ctx context.Context) error {
	if !p.bootstrapped {
		return ErrStakingNotActive
	}

	reserve, err := p.reserve(ctx)
	if err != nil {
		return err
	}
	if reserve.Lt(p.params.DistributionThreshold) {
		// below threshold the tick is a no-op; cursor and cycle state hold
		return nil
	}

	e := p.dividend.entry(p.cursor)

	switch {
	case p.cursor == 0:
		// Sentinel slot. Pays out only when an external collector is
		// installed; the pool never pays itself.
		if p.feeCollector != (common.Address{}) {
			if err := p.payout(ctx, 0, e); err != nil {
				return err
			}
		}
		p.rearm()

	case e.Shares.IsZero():
		// Entry emptied by a withdrawal since the last pass. Compact it out
		// and surface the removal as a zero-amount distribution record.
		removed := e.Provider
		if err := p.dividend.compact(p.cursor); err != nil {
			return err
		}
		p.notify(ctx, messaging.EventDistributionExecuted, removed.Hex(), messaging.DistributionPayload{
			Recipient: removed.Hex(),
			Amount:    "0",
			Cursor:    p.cursor,
			Cleanup:   true,
		})
		p.cursor--

	default:
		if err := p.payout(ctx, p.cursor, e); err != nil {
			return err
		}
		p.cursor--
	}
	return nil
}

// payout pays the entry its pro-rata slice of the per-cycle budget. The
// weight accumulator grows by the paid amount so the stake pricing formula
// keeps valuing the pool as if the cycle's payouts were still in reserve.
func (p *Pool) payout(ctx context.Context, slot int, e *DividendEntry) error {
	amount := mulDiv(e.Shares, p.params.PayoutBudget, p.dividend.totalShares())
	if amount.IsZero() {
		return nil
	}

	p.currentWeight.Add(p.currentWeight, amount)
	p.distributionAccumulator.Add(p.distributionAccumulator, amount)

	if err := p.assets.Transfer(ctx, p.params.PoolAddress, e.Provider, amount); err != nil {
		p.currentWeight.Sub(p.currentWeight, amount)
		p.distributionAccumulator.Sub(p.distributionAccumulator, amount)
		return err
	}
	e.CumulativeProfit.Add(e.CumulativeProfit, amount)

	p.logger.LogDistribution(e.Provider.Hex(), amount.Dec(), slot)
	p.notify(ctx, messaging.EventDistributionExecuted, e.Provider.Hex(), messaging.DistributionPayload{
		Recipient: e.Provider.Hex(),
		Amount:    amount.Dec(),
		Cursor:    slot,
	})
	return nil
}

// rearm closes the cycle after the sentinel slot: the cycle accumulators
// reset and the cursor points back at the highest slot. An admin-installed
// collector keeps the sentinel; otherwise the slot reverts to the pool's
// own identity.
func (p *Pool) rearm() {
	if p.feeCollector == (common.Address{}) {
		p.dividend.entry(0).Provider = p.params.PoolAddress
	}
	p.currentWeight.Clear()
	p.distributionAccumulator.Clear()
	p.cursor = p.dividend.len() - 1
}
