package utilities

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// SetSnowflakeNode configures the process-wide snowflake node. Called once
// at startup with the configured node id.
func SetSnowflakeNode(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

// NewSnowflakeID generates a snowflake ID string on the configured node,
// defaulting to node 1. If the node cannot be initialized it falls back to
// a KSUID string so an ID is always returned.
func NewSnowflakeID() string {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	if node == nil {
		n, err := snowflake.NewNode(1)
		if err != nil {
			return NewKSUID()
		}
		node = n
	}
	return node.Generate().String()
}

// NewBookingReference formats the human-facing booking reference,
// e.g. RNT-20261015-123456.
func NewBookingReference(id string, at time.Time) string {
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "RNT-" + at.UTC().Format("20060102") + "-" + suffix
}
