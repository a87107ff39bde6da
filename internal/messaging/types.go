package messaging

import "time"

// EventKind identifies the observable pool events.
type EventKind string

const (
	// EventPoolBootstrapped - pool reserve seeded and staking opened
	EventPoolBootstrapped EventKind = "pool.bootstrapped"
	// EventStakePlaced - participant deposited into the reserve
	EventStakePlaced EventKind = "pool.stake_placed"
	// EventStakeExited - participant redeemed shares from the reserve
	EventStakeExited EventKind = "pool.stake_exited"
	// EventDividendSharesAdded - shares committed to the dividend program
	EventDividendSharesAdded EventKind = "dividend.shares_added"
	// EventDividendSharesRemoved - shares withdrawn from the dividend program
	EventDividendSharesRemoved EventKind = "dividend.shares_removed"
	// EventDividendSharesBurned - sentinel shares burned by the admin
	EventDividendSharesBurned EventKind = "dividend.shares_burned"
	// EventDividendRecipientChanged - sentinel entry re-pointed to a collector
	EventDividendRecipientChanged EventKind = "dividend.recipient_changed"
	// EventDistributionExecuted - scheduler paid out one registry entry
	EventDistributionExecuted EventKind = "dividend.distribution_executed"
	// EventGameUnlockInitiated - game approval timelock started
	EventGameUnlockInitiated EventKind = "games.unlock_initiated"
	// EventGameApprovalChanged - game approved or revoked
	EventGameApprovalChanged EventKind = "games.approval_changed"
	// EventPrizeSent - prize paid from the reserve to a winner
	EventPrizeSent EventKind = "games.prize_sent"
	// EventOracleRequested - gateway served a randomness request
	EventOracleRequested EventKind = "oracle.request_served"
	// EventBatchIntervalChanged - oracle batching window retuned
	EventBatchIntervalChanged EventKind = "oracle.batch_interval_changed"
)

// Event is the envelope published for every observable pool operation.
// Key is the Kafka partition key, usually the affected address.
type Event struct {
	Kind    EventKind   `json:"kind"`
	Key     string      `json:"key"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// BootstrapPayload describes the one-time pool bootstrap.
type BootstrapPayload struct {
	Admin  string `json:"admin"`
	Amount string `json:"amount"`
}

// StakePayload describes a stake deposit.
type StakePayload struct {
	Staker       string `json:"staker"`
	Amount       string `json:"amount"`
	Fee          string `json:"fee"`
	MintedShares string `json:"minted_shares"`
}

// ExitPayload describes a stake redemption.
type ExitPayload struct {
	Staker       string `json:"staker"`
	BurnedShares string `json:"burned_shares"`
	Returned     string `json:"returned"`
}

// DividendSharesPayload describes dividend registry adds/removes.
type DividendSharesPayload struct {
	Provider   string `json:"provider"`
	Shares     string `json:"shares"`
	Fee        string `json:"fee,omitempty"`
	EntryIndex int    `json:"entry_index"`
}

// DistributionPayload describes one scheduler payout tick.
// Cleanup is true when the tick removed an emptied entry instead of paying.
type DistributionPayload struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Cursor    int    `json:"cursor"`
	Cleanup   bool   `json:"cleanup"`
}

// RecipientChangePayload describes a sentinel re-pointing.
type RecipientChangePayload struct {
	Previous  string `json:"previous"`
	Recipient string `json:"recipient"`
	Fee       string `json:"fee"`
}

// GameUnlockPayload describes the start of an approval timelock.
type GameUnlockPayload struct {
	Game        string    `json:"game"`
	InitiatedAt time.Time `json:"initiated_at"`
	UnlocksAt   time.Time `json:"unlocks_at"`
}

// GameApprovalPayload describes an approval state change.
type GameApprovalPayload struct {
	Game     string `json:"game"`
	Approved bool   `json:"approved"`
}

// PrizePayload describes a prize payout.
type PrizePayload struct {
	Game   string `json:"game"`
	Winner string `json:"winner"`
	Amount string `json:"amount"`
}

// BurnPayload describes an admin burn of sentinel dividend shares.
type BurnPayload struct {
	Amount string `json:"amount"`
}

// OracleRequestPayload describes one randomness request served by the
// gateway. LatencyMS is the upstream round trip, 0 for batched requests.
type OracleRequestPayload struct {
	RequestID   string `json:"request_id"`
	BlockHeight uint64 `json:"block_height"`
	Batched     bool   `json:"batched"`
	LatencyMS   int64  `json:"latency_ms"`
}

// BatchIntervalPayload describes a batching-window change.
type BatchIntervalPayload struct {
	Blocks uint64 `json:"blocks"`
}
