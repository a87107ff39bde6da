package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// dividendRegistry is a dense, order-irrelevant arena of dividend entries
// plus a provider→slot index. Slot 0 is the reserved sentinel; the index map
// therefore only holds slots >= 1, and a zero lookup means "not in pool".
// Removal is swap-and-pop, so slots are not stable across calls.
type dividendRegistry struct {
	entries []DividendEntry
	index   map[common.Address]int
	total   *uint256.Int // invariant: Σ entries[i].Shares
}

func newDividendRegistry() *dividendRegistry {
	return &dividendRegistry{
		index: make(map[common.Address]int),
		total: new(uint256.Int),
	}
}

// init installs the sentinel entry at slot 0. Called once from bootstrap.
func (r *dividendRegistry) init(sentinel common.Address, shares *uint256.Int) {
	r.entries = append(r.entries, DividendEntry{
		Provider:         sentinel,
		Shares:           new(uint256.Int).Set(shares),
		CumulativeProfit: new(uint256.Int),
	})
	r.total.Add(r.total, shares)
}

// slot returns the provider's entry index, 0 if absent.
func (r *dividendRegistry) slot(provider common.Address) int {
	return r.index[provider]
}

// entry returns the live entry at slot i. The pointer is only valid until
// the next mutation.
func (r *dividendRegistry) entry(i int) *DividendEntry {
	return &r.entries[i]
}

func (r *dividendRegistry) len() int {
	return len(r.entries)
}

func (r *dividendRegistry) totalShares() *uint256.Int {
	return new(uint256.Int).Set(r.total)
}

// grant adds shares to the provider's entry, creating one if needed, and
// returns the entry's slot.
func (r *dividendRegistry) grant(provider common.Address, amount *uint256.Int) int {
	i := r.index[provider]
	if i != 0 {
		r.entries[i].Shares.Add(r.entries[i].Shares, amount)
	} else {
		i = len(r.entries)
		r.entries = append(r.entries, DividendEntry{
			Provider:         provider,
			Shares:           new(uint256.Int).Set(amount),
			CumulativeProfit: new(uint256.Int),
		})
		r.index[provider] = i
	}
	r.total.Add(r.total, amount)
	return i
}

// revoke removes shares from the provider's entry. The entry itself stays
// until the scheduler's cleanup pass even when it reaches zero.
func (r *dividendRegistry) revoke(provider common.Address, amount *uint256.Int) (int, error) {
	i := r.index[provider]
	if i == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotInPool, provider.Hex())
	}
	if r.entries[i].Shares.Lt(amount) {
		return 0, fmt.Errorf("%w: provider %s", ErrInsufficientShares, provider.Hex())
	}
	r.entries[i].Shares.Sub(r.entries[i].Shares, amount)
	r.total.Sub(r.total, amount)
	return i, nil
}

// reduceSentinel burns shares out of the sentinel entry.
func (r *dividendRegistry) reduceSentinel(amount *uint256.Int) error {
	if r.entries[0].Shares.Lt(amount) {
		return fmt.Errorf("%w: sentinel entry", ErrInsufficientShares)
	}
	r.entries[0].Shares.Sub(r.entries[0].Shares, amount)
	r.total.Sub(r.total, amount)
	return nil
}

// compact removes the entry at slot i by overwriting it with the last entry
// and popping the array. Both the moved entry's and the removed provider's
// index mappings are updated in the same step.
func (r *dividendRegistry) compact(i int) error {
	if i <= 0 || i >= len(r.entries) {
		return fmt.Errorf("%w: slot %d of %d", ErrIndexOutOfRange, i, len(r.entries))
	}

	removed := r.entries[i].Provider
	last := len(r.entries) - 1
	if i != last {
		r.entries[i] = r.entries[last]
		r.index[r.entries[i].Provider] = i
	}
	r.entries = r.entries[:last]
	delete(r.index, removed)
	return nil
}
