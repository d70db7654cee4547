package sync

import "errors"

// ErrInvalidShardCount is returned by NewSlotMapWithShards when the
// requested shard count is not a power of two, or is below the minimum of
// four required by the least-of-four placement strategy.
var ErrInvalidShardCount = errors.New("sync: shard count must be a power of two and at least 4")
