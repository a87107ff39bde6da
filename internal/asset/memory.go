package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrInsufficientFunds indicates a transfer exceeding the source balance.
var ErrInsufficientFunds = fmt.Errorf("asset: insufficient funds")

// MemoryLedger is an in-process Ledger implementation used by tests and
// local runs. It applies the same conservation rules a real asset would.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Credit adds amount to an account. Test setup helper.
func (m *MemoryLedger) Credit(account common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(account, amount)
}

func (m *MemoryLedger) credit(account common.Address, amount *uint256.Int) {
	bal, ok := m.balances[account]
	if !ok {
		bal = new(uint256.Int)
		m.balances[account] = bal
	}
	bal.Add(bal, amount)
}

func (m *MemoryLedger) debit(account common.Address, amount *uint256.Int) error {
	bal, ok := m.balances[account]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: account %s", ErrInsufficientFunds, account.Hex())
	}
	bal.Sub(bal, amount)
	return nil
}

// Transfer implements Ledger.
func (m *MemoryLedger) Transfer(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.debit(from, amount); err != nil {
		return err
	}
	m.credit(to, amount)
	return nil
}

// TransferFrom implements Ledger. The in-memory ledger does not model
// allowances; delegated transfers behave like direct ones.
func (m *MemoryLedger) TransferFrom(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return m.Transfer(ctx, from, to, amount)
}

// BalanceOf implements Ledger.
func (m *MemoryLedger) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[account]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(bal), nil
}
