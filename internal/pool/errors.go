package pool

import "errors"

var (
	// ErrAlreadyStarted indicates a repeated bootstrap attempt.
	ErrAlreadyStarted = errors.New("pool: staking already started")

	// ErrStakingNotActive indicates an operation that requires an active pool.
	ErrStakingNotActive = errors.New("pool: staking not active")

	// ErrInsufficientBalance indicates the caller's asset balance is too low.
	ErrInsufficientBalance = errors.New("pool: insufficient asset balance")

	// ErrInsufficientShares indicates a share balance below the requested amount.
	ErrInsufficientShares = errors.New("pool: insufficient share balance")

	// ErrInsufficientReserve indicates a payout exceeding the reserve holdings.
	ErrInsufficientReserve = errors.New("pool: insufficient reserve")

	// ErrNotInPool indicates a dividend lookup on an unregistered provider.
	ErrNotInPool = errors.New("pool: provider not in dividend pool")

	// ErrIndexOutOfRange indicates a dividend registry access past the live entries.
	ErrIndexOutOfRange = errors.New("pool: entry index out of range")

	// ErrReservedIdentity indicates an attempt to register the pool's own identity.
	ErrReservedIdentity = errors.New("pool: reserved identity")

	// ErrReentrantCall indicates a recursive call into a locked operation.
	ErrReentrantCall = errors.New("pool: reentrant call")

	// ErrUnauthorized indicates the caller lacks the required role or approval.
	ErrUnauthorized = errors.New("pool: unauthorized")
)
