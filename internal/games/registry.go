// Package games maintains the registry of contracts allowed to draw prizes
// from the pool. Approval is a two-step, admin-only flow: an unlock is
// initiated for a verified contract address, and only after a fixed timelock
// has elapsed can the approval be finalized. The delay gives observers time
// to react before a new payout path goes live.
package games

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/internal/pool"
	"github.com/stakeworks/gosp/pkg/log"
)

// ContractVerifier checks that an address carries deployed code.
type ContractVerifier interface {
	IsContract(ctx context.Context, addr common.Address) (bool, error)
}

// Registry is the time-locked game approval set. It implements pool.Approver.
type Registry struct {
	admin    common.Address
	timelock time.Duration
	verifier ContractVerifier
	notifier pool.Notifier
	logger   *log.Logger
	now      func() time.Time

	unlocks  map[common.Address]time.Time
	approved []common.Address
	index    map[common.Address]int
}

// NewRegistry creates an empty registry. A 24h timelock is the production
// setting; tests shorten it.
func NewRegistry(admin common.Address, timelock time.Duration, verifier ContractVerifier, notifier pool.Notifier, logger *log.Logger) *Registry {
	return &Registry{
		admin:    admin,
		timelock: timelock,
		verifier: verifier,
		notifier: notifier,
		logger:   logger.WithComponent("games"),
		now:      time.Now,
		unlocks:  make(map[common.Address]time.Time),
		index:    make(map[common.Address]int),
	}
}

func (r *Registry) notify(ctx context.Context, kind messaging.EventKind, key string, payload interface{}) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, messaging.Event{
		Kind:    kind,
		Key:     key,
		At:      r.now().UTC(),
		Payload: payload,
	})
}

// InitiateUnlock starts the approval timelock for a game contract. The
// address must carry code; an unlock that is already pending is not restarted,
// so the admin cannot shorten a running timelock by re-initiating.
func (r *Registry) InitiateUnlock(ctx context.Context, caller, game common.Address) error {
	if caller != r.admin {
		return ErrUnauthorized
	}
	if _, pending := r.unlocks[game]; pending {
		return fmt.Errorf("%w: %s", ErrUnlockPending, game.Hex())
	}

	isContract, err := r.verifier.IsContract(ctx, game)
	if err != nil {
		return fmt.Errorf("verify contract %s: %w", game.Hex(), err)
	}
	if !isContract {
		return fmt.Errorf("%w: %s", ErrNotContract, game.Hex())
	}

	at := r.now()
	r.unlocks[game] = at

	r.logger.WithGame(game.Hex()).Info("unlock initiated", "unlock_at", at.Add(r.timelock))
	r.notify(ctx, messaging.EventGameUnlockInitiated, game.Hex(), messaging.GameUnlockPayload{
		Game:        game.Hex(),
		InitiatedAt: at.UTC(),
		UnlocksAt:   at.Add(r.timelock).UTC(),
	})
	return nil
}

// Approve finalizes a pending unlock once the timelock has elapsed. The
// unlock is consumed: revoking and re-approving a game requires a fresh one.
func (r *Registry) Approve(ctx context.Context, caller, game common.Address) error {
	if caller != r.admin {
		return ErrUnauthorized
	}

	initiated, ok := r.unlocks[game]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnlockNotInitiated, game.Hex())
	}
	if elapsed := r.now().Sub(initiated); elapsed < r.timelock {
		return fmt.Errorf("%w: %s remaining", ErrTimelockNotElapsed, r.timelock-elapsed)
	}

	delete(r.unlocks, game)
	if _, already := r.index[game]; !already {
		r.index[game] = len(r.approved)
		r.approved = append(r.approved, game)
	}

	r.logger.WithGame(game.Hex()).Info("game approved")
	r.notify(ctx, messaging.EventGameApprovalChanged, game.Hex(), messaging.GameApprovalPayload{
		Game:     game.Hex(),
		Approved: true,
	})
	return nil
}

// Revoke removes a game from the approval set. Approval changes in either
// direction go through the unlock and timelock; the unlock is consumed here
// just as in Approve. Removal is swap-and-pop, so approval order is not
// preserved.
func (r *Registry) Revoke(ctx context.Context, caller, game common.Address) error {
	if caller != r.admin {
		return ErrUnauthorized
	}

	initiated, ok := r.unlocks[game]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnlockNotInitiated, game.Hex())
	}
	if elapsed := r.now().Sub(initiated); elapsed < r.timelock {
		return fmt.Errorf("%w: %s remaining", ErrTimelockNotElapsed, r.timelock-elapsed)
	}

	i, ok := r.index[game]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInRegistry, game.Hex())
	}
	delete(r.unlocks, game)

	last := len(r.approved) - 1
	if i != last {
		r.approved[i] = r.approved[last]
		r.index[r.approved[i]] = i
	}
	r.approved = r.approved[:last]
	delete(r.index, game)

	r.logger.WithGame(game.Hex()).Info("game revoked")
	r.notify(ctx, messaging.EventGameApprovalChanged, game.Hex(), messaging.GameApprovalPayload{
		Game:     game.Hex(),
		Approved: false,
	})
	return nil
}

// IsApproved implements pool.Approver.
func (r *Registry) IsApproved(game common.Address) bool {
	_, ok := r.index[game]
	return ok
}

// Approved returns a copy of the approval set.
func (r *Registry) Approved() []common.Address {
	out := make([]common.Address, len(r.approved))
	copy(out, r.approved)
	return out
}

// PendingUnlock reports whether an unlock is in flight and when it opens.
func (r *Registry) PendingUnlock(game common.Address) (time.Time, bool) {
	initiated, ok := r.unlocks[game]
	if !ok {
		return time.Time{}, false
	}
	return initiated.Add(r.timelock), true
}
