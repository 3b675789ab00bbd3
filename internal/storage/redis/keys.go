package redis

import (
	"fmt"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// Key prefix for all leaderboard data
const keyPrefix = "pfboard"

// playerKey returns the Redis key for a Player record
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// nameIndexKey returns the Redis key for the name -> player_id index
func nameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:name:%s", keyPrefix, name)
}

// valueIndexKey returns the Redis key for the sorted set of player IDs scored by current value
func valueIndexKey() string {
	return fmt.Sprintf("%s:idx:current_value", keyPrefix)
}

// changesChannel returns the Pub/Sub channel carrying change notifications for a table
func changesChannel(table string) string {
	return fmt.Sprintf("%s:changes:%s", keyPrefix, table)
}
