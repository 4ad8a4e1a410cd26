package teamspeak

import (
	"errors"
	"time"

	"github.com/pior/teamspeak/query"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerState is the state of a circuit breaker.
type CircuitBreakerState = gobreaker.State

const (
	CircuitBreakerStateClosed   = gobreaker.StateClosed
	CircuitBreakerStateHalfOpen = gobreaker.StateHalfOpen
	CircuitBreakerStateOpen     = gobreaker.StateOpen
)

// CircuitBreaker guards the request/reply exchanges of a Conn.
// *gobreaker.CircuitBreaker[*query.Reply] satisfies it.
type CircuitBreaker interface {
	Execute(req func() (*query.Reply, error)) (*query.Reply, error)
	State() gobreaker.State
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[*query.Reply])(nil)

// NewCircuitBreakerConfig returns a function that creates circuit breakers
// for servers, suitable for Config.NewCircuitBreaker.
//
// A *query.CommandError is a regular answer from a healthy server and never
// counts as a failure.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: isBreakerSuccess,
		}
		return gobreaker.NewCircuitBreaker[*query.Reply](settings)
	}
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var cmdErr *query.CommandError
	return errors.As(err, &cmdErr)
}
