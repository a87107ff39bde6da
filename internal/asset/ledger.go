// Package asset defines the fungible base-asset capability the pool core
// depends on. The asset itself is external; the pool only needs conservation
// semantics over transfer, delegated transfer, and balance queries.
package asset

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger is the contract for the reserve's base asset.
//
// Implementations must conserve value: a successful Transfer/TransferFrom
// moves exactly amount from one balance to another, and a failed call moves
// nothing. Implementations may execute arbitrary code on the receiving side,
// which is why the pool core treats every call as a potential re-entry point.
type Ledger interface {
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error

	// TransferFrom moves amount from a third-party account, typically under
	// a prior authorization held by the pool.
	TransferFrom(ctx context.Context, from, to common.Address, amount *uint256.Int) error

	// BalanceOf returns the current balance of an account.
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
}
