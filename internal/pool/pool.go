package pool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeworks/gosp/internal/asset"
	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/pkg/log"
)

// Pool is the staking ledger service. It owns all mutable pool state and is
// a single-logical-thread state machine: callers serialize operations, and
// the re-entrancy guard turns mid-operation callbacks into hard errors.
// Every failed operation leaves the state exactly as it found it.
type Pool struct {
	params   Params
	assets   asset.Ledger
	approver Approver
	notifier Notifier
	logger   *log.Logger

	shares   *shareLedger
	dividend *dividendRegistry

	cursor                  int
	currentWeight           *uint256.Int
	distributionAccumulator *uint256.Int
	feeCollector            common.Address // zero until the admin installs one
	bootstrapped            bool
	stakingActive           bool

	guard reentrancyGuard
}

// New creates a pool over the given asset ledger. The approver gates prize
// payouts; a nil notifier disables event emission (tests).
func New(params Params, assets asset.Ledger, approver Approver, notifier Notifier, logger *log.Logger) *Pool {
	return &Pool{
		params:                  params,
		assets:                  assets,
		approver:                approver,
		notifier:                notifier,
		logger:                  logger.WithComponent("pool"),
		shares:                  newShareLedger(),
		dividend:                newDividendRegistry(),
		currentWeight:           new(uint256.Int),
		distributionAccumulator: new(uint256.Int),
	}
}

func (p *Pool) notify(ctx context.Context, kind messaging.EventKind, key string, payload interface{}) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(ctx, messaging.Event{
		Kind:    kind,
		Key:     key,
		At:      time.Now().UTC(),
		Payload: payload,
	})
}

// reserve is the pool's balance of the base asset.
func (p *Pool) reserve(ctx context.Context) (*uint256.Int, error) {
	return p.assets.BalanceOf(ctx, p.params.PoolAddress)
}

// Bootstrap seeds the reserve, mints the initial shares to the pool's own
// holding, installs the sentinel dividend entry, and opens staking. One-time
// and privileged.
func (p *Pool) Bootstrap(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	if caller != p.params.Admin {
		return ErrUnauthorized
	}
	if p.bootstrapped {
		return ErrAlreadyStarted
	}

	bal, err := p.assets.BalanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}

	if err := p.assets.TransferFrom(ctx, caller, p.params.PoolAddress, amount); err != nil {
		return err
	}

	p.shares.mint(p.params.PoolAddress, amount)
	p.dividend.init(p.params.PoolAddress, amount)
	p.cursor = 0
	p.bootstrapped = true
	p.stakingActive = true

	p.logger.Info("pool bootstrapped", "admin", caller.Hex(), "amount", amount.Dec())
	p.notify(ctx, messaging.EventPoolBootstrapped, caller.Hex(), messaging.BootstrapPayload{
		Admin:  caller.Hex(),
		Amount: amount.Dec(),
	})
	return nil
}

// Stake deposits amount into the reserve and mints shares for the post-fee
// portion. The full amount enters the reserve; the 3% fee is captured as
// dilution in favor of existing holders, not routed anywhere.
func (p *Pool) Stake(ctx context.Context, staker common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if !p.stakingActive {
		return nil, ErrStakingNotActive
	}

	bal, err := p.assets.BalanceOf(ctx, staker)
	if err != nil {
		return nil, err
	}
	if bal.Lt(amount) {
		return nil, ErrInsufficientBalance
	}

	reserve, err := p.reserve(ctx)
	if err != nil {
		return nil, err
	}

	fee := percentOf(amount, stakeFeePercent)
	net := new(uint256.Int).Sub(amount, fee)
	denom := new(uint256.Int).Add(reserve, p.currentWeight)
	minted := mulDiv(net, p.shares.totalSupply(), denom)

	p.logger.WithStaker(staker.Hex()).Debug("stake priced",
		"fee", fee.Dec(), "minted_shares", minted.Dec())

	if err := p.assets.TransferFrom(ctx, staker, p.params.PoolAddress, amount); err != nil {
		return nil, err
	}
	p.shares.mint(staker, minted)

	p.logger.LogStakeOperation("stake", staker.Hex(), amount.Dec())
	p.notify(ctx, messaging.EventStakePlaced, staker.Hex(), messaging.StakePayload{
		Staker:       staker.Hex(),
		Amount:       amount.Dec(),
		Fee:          fee.Dec(),
		MintedShares: minted.Dec(),
	})
	return minted, nil
}

// ExitStake redeems shares for 97% of their proportional reserve value.
// While a distribution cycle is in flight, the weight accumulator is scaled
// down with the exiting supply so pending payouts are not counted twice.
func (p *Pool) ExitStake(ctx context.Context, staker common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := p.guard.enter(); err != nil {
		return nil, err
	}
	defer p.guard.exit()

	if p.shares.balanceOf(staker).Lt(amount) {
		return nil, ErrInsufficientShares
	}

	reserve, err := p.reserve(ctx)
	if err != nil {
		return nil, err
	}

	total := p.shares.totalSupply()
	stakeValue := mulDiv(amount, reserve, total)
	toSend := percentOf(stakeValue, exitReturnPercent)

	var weightCut *uint256.Int
	if !p.distributionAccumulator.IsZero() {
		weightCut = mulDiv(p.currentWeight, amount, total)
		p.currentWeight.Sub(p.currentWeight, weightCut)
	}

	if err := p.shares.burn(staker, amount); err != nil {
		if weightCut != nil {
			p.currentWeight.Add(p.currentWeight, weightCut)
		}
		return nil, err
	}

	if err := p.assets.Transfer(ctx, p.params.PoolAddress, staker, toSend); err != nil {
		// revert bookkeeping, the transfer moved nothing
		p.shares.mint(staker, amount)
		if weightCut != nil {
			p.currentWeight.Add(p.currentWeight, weightCut)
		}
		return nil, err
	}

	if p.shares.totalSupply().IsZero() {
		p.stakingActive = false
		p.logger.Info("pool fully unwound, staking closed")
	}

	p.logger.LogStakeOperation("exit", staker.Hex(), amount.Dec())
	p.notify(ctx, messaging.EventStakeExited, staker.Hex(), messaging.ExitPayload{
		Staker:       staker.Hex(),
		BurnedShares: amount.Dec(),
		Returned:     toSend.Dec(),
	})
	return toSend, nil
}

// AddDividendShares commits shares from the provider's personal balance into
// the dividend program. The shares move into the pool's own holding; they
// are not burned.
func (p *Pool) AddDividendShares(ctx context.Context, provider common.Address, amount *uint256.Int) error {
	if provider == p.params.PoolAddress {
		return ErrReservedIdentity
	}
	if p.shares.balanceOf(provider).Lt(amount) {
		return ErrInsufficientShares
	}

	if err := p.shares.transfer(provider, p.params.PoolAddress, amount); err != nil {
		return err
	}
	slot := p.dividend.grant(provider, amount)

	p.logger.WithProvider(provider.Hex(), slot).Info("dividend shares added", "shares", amount.Dec())
	p.notify(ctx, messaging.EventDividendSharesAdded, provider.Hex(), messaging.DividendSharesPayload{
		Provider:   provider.Hex(),
		Shares:     amount.Dec(),
		EntryIndex: slot,
	})
	return nil
}

// RemoveDividendShares withdraws shares from the dividend program, charging
// a 4% fee that is burned from the pool's internal holding. The entry is
// decremented by the pre-fee amount; an emptied entry is left for the
// scheduler's cleanup pass.
func (p *Pool) RemoveDividendShares(ctx context.Context, provider common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := p.guard.enter(); err != nil {
		return nil, err
	}
	defer p.guard.exit()

	slot := p.dividend.slot(provider)
	if slot == 0 {
		return nil, ErrNotInPool
	}
	if p.dividend.entry(slot).Shares.Lt(amount) {
		return nil, ErrInsufficientShares
	}

	fee := new(uint256.Int).Div(amount, uint256.NewInt(dividendFeeDivisor))
	returned := new(uint256.Int).Sub(amount, fee)

	if err := p.shares.burn(p.params.PoolAddress, fee); err != nil {
		return nil, err
	}
	if _, err := p.dividend.revoke(provider, amount); err != nil {
		p.shares.mint(p.params.PoolAddress, fee)
		return nil, err
	}
	if err := p.shares.transfer(p.params.PoolAddress, provider, returned); err != nil {
		p.dividend.grant(provider, amount)
		p.shares.mint(p.params.PoolAddress, fee)
		return nil, err
	}

	p.logger.WithProvider(provider.Hex(), slot).Info("dividend shares removed",
		"shares", amount.Dec(), "fee", fee.Dec())
	p.notify(ctx, messaging.EventDividendSharesRemoved, provider.Hex(), messaging.DividendSharesPayload{
		Provider:   provider.Hex(),
		Shares:     amount.Dec(),
		Fee:        fee.Dec(),
		EntryIndex: slot,
	})
	return returned, nil
}

// SendPrize pays amount from the reserve to the winner. Only approved games
// may call it; prizes bypass all share and weight bookkeeping.
func (p *Pool) SendPrize(ctx context.Context, game, winner common.Address, amount *uint256.Int) error {
	if p.approver == nil || !p.approver.IsApproved(game) {
		return ErrUnauthorized
	}

	reserve, err := p.reserve(ctx)
	if err != nil {
		return err
	}
	if reserve.Lt(amount) {
		return ErrInsufficientReserve
	}

	if err := p.assets.Transfer(ctx, p.params.PoolAddress, winner, amount); err != nil {
		return err
	}

	p.logger.WithGame(game.Hex()).Info("prize sent", "winner", winner.Hex(), "amount", amount.Dec())
	p.notify(ctx, messaging.EventPrizeSent, winner.Hex(), messaging.PrizePayload{
		Game:   game.Hex(),
		Winner: winner.Hex(),
		Amount: amount.Dec(),
	})
	return nil
}

// SetDividendRecipient re-points the sentinel entry to an external collector,
// charging 0.1% of the dividend total, burned from the sentinel's shares.
// Setting the pool's own identity uninstalls the collector. Privileged.
func (p *Pool) SetDividendRecipient(ctx context.Context, caller, recipient common.Address) error {
	if caller != p.params.Admin {
		return ErrUnauthorized
	}
	if !p.bootstrapped {
		return ErrStakingNotActive
	}

	fee := new(uint256.Int).Div(p.dividend.totalShares(), uint256.NewInt(recipientFeeDivisor))
	if p.dividend.entry(0).Shares.Lt(fee) {
		return ErrInsufficientShares
	}

	if err := p.shares.burn(p.params.PoolAddress, fee); err != nil {
		return err
	}
	if err := p.dividend.reduceSentinel(fee); err != nil {
		p.shares.mint(p.params.PoolAddress, fee)
		return err
	}

	prev := p.dividend.entry(0).Provider
	p.dividend.entry(0).Provider = recipient
	if recipient == p.params.PoolAddress {
		p.feeCollector = common.Address{}
	} else {
		p.feeCollector = recipient
	}

	p.logger.Info("dividend recipient changed", "previous", prev.Hex(), "recipient", recipient.Hex())
	p.notify(ctx, messaging.EventDividendRecipientChanged, recipient.Hex(), messaging.RecipientChangePayload{
		Previous:  prev.Hex(),
		Recipient: recipient.Hex(),
		Fee:       fee.Dec(),
	})
	return nil
}

// BurnDividendShares burns amount out of the sentinel entry and the pool's
// internal share holding. Privileged.
func (p *Pool) BurnDividendShares(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	if caller != p.params.Admin {
		return ErrUnauthorized
	}
	if !p.bootstrapped {
		return ErrStakingNotActive
	}
	if p.dividend.entry(0).Shares.Lt(amount) {
		return ErrInsufficientShares
	}

	if err := p.shares.burn(p.params.PoolAddress, amount); err != nil {
		return err
	}
	if err := p.dividend.reduceSentinel(amount); err != nil {
		p.shares.mint(p.params.PoolAddress, amount)
		return err
	}

	p.logger.Info("dividend shares burned", "amount", amount.Dec())
	p.notify(ctx, messaging.EventDividendSharesBurned, caller.Hex(), messaging.BurnPayload{
		Amount: amount.Dec(),
	})
	return nil
}

// Read-only views.

// BalanceOf returns a holder's claim-token balance.
func (p *Pool) BalanceOf(holder common.Address) *uint256.Int {
	return p.shares.balanceOf(holder)
}

// TotalShares returns the claim token's total supply.
func (p *Pool) TotalShares() *uint256.Int {
	return p.shares.totalSupply()
}

// DividendTotal returns the sum of all live dividend entry shares.
func (p *Pool) DividendTotal() *uint256.Int {
	return p.dividend.totalShares()
}

// CurrentWeight returns the distribution weight accumulator.
func (p *Pool) CurrentWeight() *uint256.Int {
	return new(uint256.Int).Set(p.currentWeight)
}

// StakingActive reports whether the pool accepts stakes.
func (p *Pool) StakingActive() bool {
	return p.stakingActive
}

// EntryCount returns the number of live dividend entries.
func (p *Pool) EntryCount() int {
	return p.dividend.len()
}

// DividendEntryAt returns a copy of the entry at slot i.
func (p *Pool) DividendEntryAt(i int) (DividendEntry, error) {
	if i < 0 || i >= p.dividend.len() {
		return DividendEntry{}, ErrIndexOutOfRange
	}
	e := p.dividend.entry(i)
	return DividendEntry{
		Provider:         e.Provider,
		Shares:           new(uint256.Int).Set(e.Shares),
		CumulativeProfit: new(uint256.Int).Set(e.CumulativeProfit),
	}, nil
}

// ProviderSlot returns the provider's dividend entry index, 0 if absent.
func (p *Pool) ProviderSlot(provider common.Address) int {
	return p.dividend.slot(provider)
}

// Stats returns a full snapshot of the pool state.
func (p *Pool) Stats(ctx context.Context) (*Stats, error) {
	reserve, err := p.reserve(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Reserve:                 reserve,
		TotalShares:             p.shares.totalSupply(),
		DividendTotal:           p.dividend.totalShares(),
		CurrentWeight:           new(uint256.Int).Set(p.currentWeight),
		DistributionAccumulator: new(uint256.Int).Set(p.distributionAccumulator),
		Cursor:                  p.cursor,
		Entries:                 p.dividend.len(),
		StakingActive:           p.stakingActive,
	}, nil
}
