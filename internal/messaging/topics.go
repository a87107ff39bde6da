package messaging

import "strings"

// Topic constants for the staking pool messaging system
const (
	// TopicPoolEvents carries stake/exit/bootstrap events
	TopicPoolEvents = "staking.pool_events"
	// TopicDividendEvents carries dividend registry and distribution events
	TopicDividendEvents = "staking.dividend_events"
	// TopicGameEvents carries game registry and prize events
	TopicGameEvents = "staking.game_events"
	// TopicOracleEvents carries randomness gateway events
	TopicOracleEvents = "staking.oracle_events"
)

// TopicFor maps an event kind to its Kafka topic by kind prefix.
func TopicFor(kind EventKind) string {
	switch {
	case strings.HasPrefix(string(kind), "pool."):
		return TopicPoolEvents
	case strings.HasPrefix(string(kind), "dividend."):
		return TopicDividendEvents
	case strings.HasPrefix(string(kind), "games."):
		return TopicGameEvents
	case strings.HasPrefix(string(kind), "oracle."):
		return TopicOracleEvents
	default:
		return TopicPoolEvents
	}
}
