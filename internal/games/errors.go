package games

import "errors"

var (
	// ErrUnauthorized indicates a caller other than the admin.
	ErrUnauthorized = errors.New("games: caller is not the admin")

	// ErrNotContract indicates the candidate address has no deployed code.
	ErrNotContract = errors.New("games: address is not a contract")

	// ErrUnlockPending indicates an unlock was already initiated for the game.
	ErrUnlockPending = errors.New("games: unlock already pending")

	// ErrUnlockNotInitiated indicates approval was attempted with no unlock.
	ErrUnlockNotInitiated = errors.New("games: unlock not initiated")

	// ErrTimelockNotElapsed indicates approval was attempted too early.
	ErrTimelockNotElapsed = errors.New("games: timelock has not elapsed")

	// ErrNotInRegistry indicates the game is not currently approved.
	ErrNotInRegistry = errors.New("games: game not in registry")
)
