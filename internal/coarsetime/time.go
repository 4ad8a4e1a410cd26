// Package coarsetime provides a clock refreshed every Resolution by a
// background goroutine. Reading it costs an atomic load instead of a
// time.Now call; connections use it to stamp every exchange.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the clock.
const Resolution = 50 * time.Millisecond

var (
	nanos atomic.Int64
	start sync.Once
)

func run() {
	nanos.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			nanos.Store(t.UnixNano())
		}
	}()
}

// UnixNano returns the coarse current time in nanoseconds since the epoch.
// The clock starts on first use.
func UnixNano() int64 {
	start.Do(run)
	return nanos.Load()
}

// Now returns the coarse current time.
func Now() time.Time {
	return time.Unix(0, UnixNano())
}

// Since returns the coarse time elapsed since t.
func Since(t time.Time) time.Duration {
	return time.Duration(UnixNano() - t.UnixNano())
}
