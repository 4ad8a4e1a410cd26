package teamspeak

import (
	"sync/atomic"
)

// ConnStats contains statistics about a connection.
// All fields are safe for concurrent access.
type ConnStats struct {
	Commands      uint64 // Commands sent
	CommandErrors uint64 // Replies with a non-zero status
	Failures      uint64 // Transport and decode failures (connection closed)
	Events        uint64 // Events dispatched to listeners
}

// PoolStats contains statistics about a connection pool.
type PoolStats struct {
	// Lifetime counters
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Canceled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting
	KeepAlives        uint64 // Keepalive commands sent

	// Current state gauges
	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
}

// connStatsCollector provides internal methods for updating connection stats.
type connStatsCollector struct {
	stats ConnStats
}

func (c *connStatsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.Commands, 1)
}

func (c *connStatsCollector) recordCommandError() {
	atomic.AddUint64(&c.stats.CommandErrors, 1)
}

func (c *connStatsCollector) recordFailure() {
	atomic.AddUint64(&c.stats.Failures, 1)
}

func (c *connStatsCollector) recordEvent() {
	atomic.AddUint64(&c.stats.Events, 1)
}

func (c *connStatsCollector) snapshot() ConnStats {
	return ConnStats{
		Commands:      atomic.LoadUint64(&c.stats.Commands),
		CommandErrors: atomic.LoadUint64(&c.stats.CommandErrors),
		Failures:      atomic.LoadUint64(&c.stats.Failures),
		Events:        atomic.LoadUint64(&c.stats.Events),
	}
}
