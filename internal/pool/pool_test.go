package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/stakeworks/gosp/internal/asset"
	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/pkg/log"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000002")
	carol    = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// eventRecorder captures emitted events in order.
type eventRecorder struct {
	events []messaging.Event
}

func (r *eventRecorder) Notify(_ context.Context, e messaging.Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []messaging.EventKind {
	out := make([]messaging.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type approveAll struct{}

func (approveAll) IsApproved(common.Address) bool { return true }

type approveNone struct{}

func (approveNone) IsApproved(common.Address) bool { return false }

func testParams() Params {
	return Params{
		Admin:                 admin,
		PoolAddress:           poolAddr,
		DistributionThreshold: u(500),
		PayoutBudget:          u(100),
	}
}

// newTestPool bootstraps a pool with the given reserve and credits each
// extra account with 10000 units of the base asset.
func newTestPool(t *testing.T, seed uint64, accounts ...common.Address) (*Pool, *asset.MemoryLedger, *eventRecorder) {
	t.Helper()

	ledger := asset.NewMemoryLedger()
	ledger.Credit(admin, u(seed))
	for _, a := range accounts {
		ledger.Credit(a, u(10000))
	}

	rec := &eventRecorder{}
	logger := log.New("pool-test", "test", "error", "text")
	p := New(testParams(), ledger, approveAll{}, rec, logger)

	if err := p.Bootstrap(context.Background(), admin, u(seed)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return p, ledger, rec
}

func TestBootstrap(t *testing.T) {
	p, ledger, rec := newTestPool(t, 1000)
	ctx := context.Background()

	reserve, _ := ledger.BalanceOf(ctx, poolAddr)
	if reserve.Cmp(u(1000)) != 0 {
		t.Errorf("reserve = %s, want 1000", reserve.Dec())
	}
	if got := p.TotalShares(); got.Cmp(u(1000)) != 0 {
		t.Errorf("total shares = %s, want 1000", got.Dec())
	}
	if got := p.BalanceOf(poolAddr); got.Cmp(u(1000)) != 0 {
		t.Errorf("pool share balance = %s, want 1000", got.Dec())
	}
	if got := p.DividendTotal(); got.Cmp(u(1000)) != 0 {
		t.Errorf("dividend total = %s, want 1000", got.Dec())
	}
	if !p.StakingActive() {
		t.Error("staking should be active after bootstrap")
	}
	if p.EntryCount() != 1 {
		t.Errorf("entry count = %d, want 1 (sentinel)", p.EntryCount())
	}
	e, err := p.DividendEntryAt(0)
	if err != nil {
		t.Fatalf("entry 0: %v", err)
	}
	if e.Provider != poolAddr {
		t.Errorf("sentinel provider = %s, want pool identity", e.Provider.Hex())
	}
	if len(rec.events) != 1 || rec.events[0].Kind != messaging.EventPoolBootstrapped {
		t.Errorf("events = %v, want single bootstrap event", rec.kinds())
	}
}

func TestBootstrapRejections(t *testing.T) {
	p, _, _ := newTestPool(t, 1000)
	ctx := context.Background()

	if err := p.Bootstrap(ctx, admin, u(1)); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second bootstrap: got %v, want ErrAlreadyStarted", err)
	}
	if err := p.Bootstrap(ctx, alice, u(1)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin bootstrap: got %v, want ErrUnauthorized", err)
	}
}

func TestStakeMintsProportionalShares(t *testing.T) {
	p, ledger, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	// reserve 1000, supply 1000: staking 100 pays a fee of 3 and mints 97
	minted, err := p.Stake(ctx, alice, u(100))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if minted.Cmp(u(97)) != 0 {
		t.Errorf("minted = %s, want 97", minted.Dec())
	}
	if got := p.BalanceOf(alice); got.Cmp(u(97)) != 0 {
		t.Errorf("alice shares = %s, want 97", got.Dec())
	}
	if got := p.TotalShares(); got.Cmp(u(1097)) != 0 {
		t.Errorf("total shares = %s, want 1097", got.Dec())
	}
	reserve, _ := ledger.BalanceOf(ctx, poolAddr)
	if reserve.Cmp(u(1100)) != 0 {
		t.Errorf("reserve = %s, want 1100 (full amount enters, fee is dilution)", reserve.Dec())
	}
}

func TestStakeRejections(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(20000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraw stake: got %v, want ErrInsufficientBalance", err)
	}

	// drain the pool so staking closes
	if _, err := p.ExitStake(ctx, poolAddr, u(1000)); err != nil {
		t.Fatalf("full exit: %v", err)
	}
	if p.StakingActive() {
		t.Fatal("staking should close when supply reaches zero")
	}
	if _, err := p.Stake(ctx, alice, u(100)); !errors.Is(err, ErrStakingNotActive) {
		t.Errorf("stake after unwind: got %v, want ErrStakingNotActive", err)
	}
}

func TestExitStakeReturnsDiscountedValue(t *testing.T) {
	p, ledger, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	// reserve 1100, supply 1097: 97 shares value to 97, 97% of that is 94
	returned, err := p.ExitStake(ctx, alice, u(97))
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if returned.Cmp(u(94)) != 0 {
		t.Errorf("returned = %s, want 94", returned.Dec())
	}
	if got := p.BalanceOf(alice); !got.IsZero() {
		t.Errorf("alice shares = %s, want 0", got.Dec())
	}

	bal, _ := ledger.BalanceOf(ctx, alice)
	if bal.Cmp(u(9994)) != 0 {
		t.Errorf("alice asset balance = %s, want 9994", bal.Dec())
	}
}

func TestExitStakeInsufficientShares(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)

	if _, err := p.ExitStake(context.Background(), alice, u(1)); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("got %v, want ErrInsufficientShares", err)
	}
}

func TestAssetConservation(t *testing.T) {
	p, ledger, _ := newTestPool(t, 1000, alice, bob)
	ctx := context.Background()

	totalBefore := new(uint256.Int)
	for _, a := range []common.Address{admin, poolAddr, alice, bob} {
		bal, _ := ledger.BalanceOf(ctx, a)
		totalBefore.Add(totalBefore, bal)
	}

	if _, err := p.Stake(ctx, alice, u(500)); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := p.Stake(ctx, bob, u(250)); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	if _, err := p.ExitStake(ctx, alice, u(200)); err != nil {
		t.Fatalf("exit alice: %v", err)
	}

	totalAfter := new(uint256.Int)
	for _, a := range []common.Address{admin, poolAddr, alice, bob} {
		bal, _ := ledger.BalanceOf(ctx, a)
		totalAfter.Add(totalAfter, bal)
	}
	if totalBefore.Cmp(totalAfter) != 0 {
		t.Errorf("asset not conserved: before %s, after %s", totalBefore.Dec(), totalAfter.Dec())
	}
}

func TestSendPrize(t *testing.T) {
	p, ledger, rec := newTestPool(t, 1000, alice)
	ctx := context.Background()
	game := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	if err := p.SendPrize(ctx, game, alice, u(300)); err != nil {
		t.Fatalf("send prize: %v", err)
	}

	bal, _ := ledger.BalanceOf(ctx, alice)
	if bal.Cmp(u(10300)) != 0 {
		t.Errorf("winner balance = %s, want 10300", bal.Dec())
	}
	// shares are untouched by prizes
	if got := p.TotalShares(); got.Cmp(u(1000)) != 0 {
		t.Errorf("total shares = %s, want 1000", got.Dec())
	}

	last := rec.events[len(rec.events)-1]
	if last.Kind != messaging.EventPrizeSent {
		t.Errorf("last event = %s, want prize event", last.Kind)
	}

	if err := p.SendPrize(ctx, game, alice, u(10000)); !errors.Is(err, ErrInsufficientReserve) {
		t.Errorf("oversized prize: got %v, want ErrInsufficientReserve", err)
	}
}

func TestSendPrizeUnapprovedGame(t *testing.T) {
	ledger := asset.NewMemoryLedger()
	ledger.Credit(admin, u(1000))
	logger := log.New("pool-test", "test", "error", "text")
	p := New(testParams(), ledger, approveNone{}, nil, logger)
	ctx := context.Background()

	if err := p.Bootstrap(ctx, admin, u(1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	game := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	if err := p.SendPrize(ctx, game, alice, u(1)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

// reentrantLedger wraps the memory ledger and calls back into the pool the
// first time the pool pays out, the way a hostile transfer target would.
type reentrantLedger struct {
	*asset.MemoryLedger
	pool     *Pool
	attacked bool
	attack   func(ctx context.Context, p *Pool) error
	got      error
}

func (l *reentrantLedger) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if !l.attacked && from == poolAddr {
		l.attacked = true
		l.got = l.attack(ctx, l.pool)
	}
	return l.MemoryLedger.Transfer(ctx, from, to, amount)
}

func TestExitStakeReentrancyBlocked(t *testing.T) {
	ledger := &reentrantLedger{
		MemoryLedger: asset.NewMemoryLedger(),
		attack: func(ctx context.Context, p *Pool) error {
			_, err := p.ExitStake(ctx, alice, u(1))
			return err
		},
	}
	ledger.Credit(admin, u(1000))
	ledger.Credit(alice, u(10000))

	logger := log.New("pool-test", "test", "error", "text")
	p := New(testParams(), ledger, approveAll{}, nil, logger)
	ledger.pool = p
	ctx := context.Background()

	if err := p.Bootstrap(ctx, admin, u(1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if _, err := p.ExitStake(ctx, alice, u(50)); err != nil {
		t.Fatalf("outer exit should succeed: %v", err)
	}
	if !ledger.attacked {
		t.Fatal("callback never fired")
	}
	if !errors.Is(ledger.got, ErrReentrantCall) {
		t.Errorf("nested exit: got %v, want ErrReentrantCall", ledger.got)
	}
}

func TestExitStakeRollbackOnTransferFailure(t *testing.T) {
	ledger := asset.NewMemoryLedger()
	ledger.Credit(admin, u(1000))
	ledger.Credit(alice, u(10000))

	logger := log.New("pool-test", "test", "error", "text")
	p := New(testParams(), ledger, approveAll{}, nil, logger)
	ctx := context.Background()

	if err := p.Bootstrap(ctx, admin, u(1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	// drain the reserve behind the pool's back so the payout transfer fails
	if err := ledger.Transfer(ctx, poolAddr, bob, u(1100)); err != nil {
		t.Fatalf("drain: %v", err)
	}

	sharesBefore := p.BalanceOf(alice)
	if _, err := p.ExitStake(ctx, alice, u(97)); err == nil {
		t.Fatal("exit should fail when the reserve transfer fails")
	}
	if got := p.BalanceOf(alice); got.Cmp(sharesBefore) != 0 {
		t.Errorf("shares after failed exit = %s, want %s (rolled back)", got.Dec(), sharesBefore.Dec())
	}
	if got := p.TotalShares(); got.Cmp(u(1097)) != 0 {
		t.Errorf("total shares = %s, want 1097", got.Dec())
	}
}
