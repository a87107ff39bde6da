package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/stakeworks/gosp/internal/messaging"
)

func TestAddDividendShares(t *testing.T) {
	p, _, rec := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if err := p.AddDividendShares(ctx, alice, u(97)); err != nil {
		t.Fatalf("add dividend shares: %v", err)
	}

	// shares move into the pool holding, they are not burned
	if got := p.BalanceOf(alice); !got.IsZero() {
		t.Errorf("alice shares = %s, want 0", got.Dec())
	}
	if got := p.BalanceOf(poolAddr); got.Cmp(u(1097)) != 0 {
		t.Errorf("pool share holding = %s, want 1097", got.Dec())
	}
	if got := p.TotalShares(); got.Cmp(u(1097)) != 0 {
		t.Errorf("total shares = %s, want 1097", got.Dec())
	}
	if got := p.DividendTotal(); got.Cmp(u(1097)) != 0 {
		t.Errorf("dividend total = %s, want 1097", got.Dec())
	}

	slot := p.ProviderSlot(alice)
	if slot != 1 {
		t.Errorf("alice slot = %d, want 1", slot)
	}
	e, err := p.DividendEntryAt(slot)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if e.Provider != alice || e.Shares.Cmp(u(97)) != 0 {
		t.Errorf("entry = {%s %s}, want {alice 97}", e.Provider.Hex(), e.Shares.Dec())
	}

	last := rec.events[len(rec.events)-1]
	if last.Kind != messaging.EventDividendSharesAdded {
		t.Errorf("last event = %s, want shares-added", last.Kind)
	}
}

func TestAddDividendSharesMergesExistingEntry(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(200)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(50)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(50)); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if p.EntryCount() != 2 {
		t.Errorf("entry count = %d, want 2 (sentinel + alice)", p.EntryCount())
	}
	e, _ := p.DividendEntryAt(1)
	if e.Shares.Cmp(u(100)) != 0 {
		t.Errorf("alice entry shares = %s, want 100", e.Shares.Dec())
	}
}

func TestAddDividendSharesRejections(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if err := p.AddDividendShares(ctx, poolAddr, u(1)); !errors.Is(err, ErrReservedIdentity) {
		t.Errorf("pool identity as provider: got %v, want ErrReservedIdentity", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(1)); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("no shares: got %v, want ErrInsufficientShares", err)
	}
}

func TestRemoveDividendShares(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(97)); err != nil {
		t.Fatalf("add: %v", err)
	}

	// withdrawing 50 charges a fee of 50/25 = 2 and returns 48
	returned, err := p.RemoveDividendShares(ctx, alice, u(50))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if returned.Cmp(u(48)) != 0 {
		t.Errorf("returned = %s, want 48", returned.Dec())
	}
	if got := p.BalanceOf(alice); got.Cmp(u(48)) != 0 {
		t.Errorf("alice shares = %s, want 48", got.Dec())
	}
	// the fee is burned from the pool holding
	if got := p.TotalShares(); got.Cmp(u(1095)) != 0 {
		t.Errorf("total shares = %s, want 1095", got.Dec())
	}

	// entry drops by the pre-fee amount
	e, _ := p.DividendEntryAt(1)
	if e.Shares.Cmp(u(47)) != 0 {
		t.Errorf("entry shares = %s, want 47", e.Shares.Dec())
	}
	if got := p.DividendTotal(); got.Cmp(u(1047)) != 0 {
		t.Errorf("dividend total = %s, want 1047", got.Dec())
	}
}

func TestRemoveDividendSharesRejections(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.RemoveDividendShares(ctx, alice, u(1)); !errors.Is(err, ErrNotInPool) {
		t.Errorf("no entry: got %v, want ErrNotInPool", err)
	}

	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := p.RemoveDividendShares(ctx, alice, u(11)); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("over-withdraw: got %v, want ErrInsufficientShares", err)
	}
}

func TestRemoveDividendSharesEmptiedEntryAwaitsCleanup(t *testing.T) {
	p, _, _ := newTestPool(t, 1000, alice)
	ctx := context.Background()

	if _, err := p.Stake(ctx, alice, u(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := p.AddDividendShares(ctx, alice, u(50)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := p.RemoveDividendShares(ctx, alice, u(50)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// the zeroed entry stays until the scheduler compacts it
	if p.EntryCount() != 2 {
		t.Errorf("entry count = %d, want 2", p.EntryCount())
	}
	e, _ := p.DividendEntryAt(1)
	if !e.Shares.IsZero() {
		t.Errorf("entry shares = %s, want 0", e.Shares.Dec())
	}
	if p.ProviderSlot(alice) != 1 {
		t.Errorf("alice slot = %d, want 1 until cleanup", p.ProviderSlot(alice))
	}
}

func TestDividendRegistryCompact(t *testing.T) {
	r := newDividendRegistry()
	r.init(poolAddr, u(1000))
	r.grant(alice, u(10))
	r.grant(bob, u(20))
	r.grant(carol, u(30))

	// removing the middle slot moves the last entry into it
	if err := r.compact(2); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}
	if r.slot(bob) != 0 {
		t.Errorf("bob slot = %d, want 0 (removed)", r.slot(bob))
	}
	if r.slot(carol) != 2 {
		t.Errorf("carol slot = %d, want 2 (moved)", r.slot(carol))
	}
	if got := r.entry(2).Provider; got != carol {
		t.Errorf("entry 2 provider = %s, want carol", got.Hex())
	}

	// sentinel and out-of-range slots are not removable
	if err := r.compact(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("compact sentinel: got %v, want ErrIndexOutOfRange", err)
	}
	if err := r.compact(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("compact past end: got %v, want ErrIndexOutOfRange", err)
	}
}

func TestDividendTotalTracksEntrySum(t *testing.T) {
	r := newDividendRegistry()
	r.init(poolAddr, u(1000))
	r.grant(alice, u(10))
	r.grant(bob, u(20))
	if _, err := r.revoke(alice, u(5)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.reduceSentinel(u(100)); err != nil {
		t.Fatalf("reduce sentinel: %v", err)
	}

	want := new(uint256.Int)
	for i := 0; i < r.len(); i++ {
		want.Add(want, r.entry(i).Shares)
	}
	if got := r.totalShares(); got.Cmp(want) != 0 {
		t.Errorf("total = %s, want entry sum %s", got.Dec(), want.Dec())
	}
	if got := r.totalShares(); got.Cmp(u(925)) != 0 {
		t.Errorf("total = %s, want 925", got.Dec())
	}
}

func TestSetDividendRecipient(t *testing.T) {
	p, _, rec := newTestPool(t, 1000)
	ctx := context.Background()
	collector := carol

	if err := p.SetDividendRecipient(ctx, alice, collector); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin: got %v, want ErrUnauthorized", err)
	}

	if err := p.SetDividendRecipient(ctx, admin, collector); err != nil {
		t.Fatalf("set recipient: %v", err)
	}

	// fee is 0.1% of the dividend total, burned from the sentinel
	e, _ := p.DividendEntryAt(0)
	if e.Provider != collector {
		t.Errorf("sentinel provider = %s, want collector", e.Provider.Hex())
	}
	if e.Shares.Cmp(u(999)) != 0 {
		t.Errorf("sentinel shares = %s, want 999", e.Shares.Dec())
	}
	if got := p.TotalShares(); got.Cmp(u(999)) != 0 {
		t.Errorf("total shares = %s, want 999", got.Dec())
	}

	last := rec.events[len(rec.events)-1]
	if last.Kind != messaging.EventDividendRecipientChanged {
		t.Errorf("last event = %s, want recipient-changed", last.Kind)
	}
}

func TestBurnDividendShares(t *testing.T) {
	p, _, _ := newTestPool(t, 1000)
	ctx := context.Background()

	if err := p.BurnDividendShares(ctx, alice, u(100)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin burn: got %v, want ErrUnauthorized", err)
	}

	if err := p.BurnDividendShares(ctx, admin, u(100)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := p.TotalShares(); got.Cmp(u(900)) != 0 {
		t.Errorf("total shares = %s, want 900", got.Dec())
	}
	if got := p.DividendTotal(); got.Cmp(u(900)) != 0 {
		t.Errorf("dividend total = %s, want 900", got.Dec())
	}

	if err := p.BurnDividendShares(ctx, admin, u(10000)); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("over-burn: got %v, want ErrInsufficientShares", err)
	}
}
