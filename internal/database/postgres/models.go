package postgres

import "time"

// EventRecord is one journaled pool event. Payload holds the JSON-encoded
// event payload exactly as published to Kafka.
type EventRecord struct {
	ID        int64
	Kind      string
	Key       string
	At        time.Time
	Payload   []byte
	CreatedAt time.Time
}

// Distribution is one scheduler payout (or cleanup) record. Amount is the
// full-precision decimal string of the paid amount.
type Distribution struct {
	ID         int64
	Recipient  string
	Amount     string
	Cursor     int
	Cleanup    bool
	ExecutedAt time.Time
}
