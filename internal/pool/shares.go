package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// shareLedger is the fungible accounting of the pool's own claim token.
// Mint and burn are only reachable through pool operations, which is what
// keeps Σ balances == totalSupply at every observation point.
type shareLedger struct {
	balances map[common.Address]*uint256.Int
	total    *uint256.Int
}

func newShareLedger() *shareLedger {
	return &shareLedger{
		balances: make(map[common.Address]*uint256.Int),
		total:    new(uint256.Int),
	}
}

func (l *shareLedger) mint(to common.Address, amount *uint256.Int) {
	bal, ok := l.balances[to]
	if !ok {
		bal = new(uint256.Int)
		l.balances[to] = bal
	}
	bal.Add(bal, amount)
	l.total.Add(l.total, amount)
}

func (l *shareLedger) burn(from common.Address, amount *uint256.Int) error {
	bal, ok := l.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: holder %s", ErrInsufficientShares, from.Hex())
	}
	bal.Sub(bal, amount)
	l.total.Sub(l.total, amount)
	return nil
}

func (l *shareLedger) transfer(from, to common.Address, amount *uint256.Int) error {
	bal, ok := l.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: holder %s", ErrInsufficientShares, from.Hex())
	}
	bal.Sub(bal, amount)

	dst, ok := l.balances[to]
	if !ok {
		dst = new(uint256.Int)
		l.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// balanceOf returns a copy; callers never hold ledger-internal values.
func (l *shareLedger) balanceOf(holder common.Address) *uint256.Int {
	bal, ok := l.balances[holder]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

func (l *shareLedger) totalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.total)
}
