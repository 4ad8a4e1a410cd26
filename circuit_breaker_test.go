package teamspeak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pior/teamspeak/internal/testutils"
	"github.com/pior/teamspeak/query"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerConfig(t *testing.T) {
	newBreaker := NewCircuitBreakerConfig(1, time.Second, time.Second)
	cb := newBreaker("127.0.0.1:10011")
	require.NotNil(t, cb)
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
}

func TestCircuitBreaker_TripsOnTransportFailures(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")
	failure := errors.New("connection reset")

	for range 3 {
		_, err := cb.Execute(func() (*query.Reply, error) { return nil, failure })
		assert.ErrorIs(t, err, failure)
	}
	assert.Equal(t, CircuitBreakerStateOpen, cb.State())

	_, err := cb.Execute(func() (*query.Reply, error) { return &query.Reply{}, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_CommandErrorIsSuccess(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute)("test")
	cmdErr := &query.CommandError{ID: 768, Message: "invalid channelID"}

	for range 5 {
		_, err := cb.Execute(func() (*query.Reply, error) { return nil, cmdErr })
		assert.ErrorIs(t, err, cmdErr)
	}
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, 50*time.Millisecond)("test")
	for range 3 {
		cb.Execute(func() (*query.Reply, error) { return nil, errors.New("down") })
	}
	require.Equal(t, CircuitBreakerStateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, CircuitBreakerStateHalfOpen, cb.State())

	_, err := cb.Execute(func() (*query.Reply, error) { return &query.Reply{}, nil })
	require.NoError(t, err)
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
}

func TestConn_CircuitBreaker(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	srv.Handle("serverinfo", `error id=1024 msg=invalid\sserverID`)
	conn := newTestConn(t, srv, func(cfg *Config) {
		cfg.NewCircuitBreaker = NewCircuitBreakerConfig(1, time.Minute, time.Minute)
	})
	ctx := context.Background()

	for range 4 {
		_, err := conn.Execute(ctx, query.NewCommand("serverinfo"))
		var cmdErr *query.CommandError
		require.ErrorAs(t, err, &cmdErr)
	}
	assert.Equal(t, CircuitBreakerStateClosed, conn.CircuitBreakerState())
}

func TestConn_NoCircuitBreaker(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	conn := newTestConn(t, srv)
	assert.Equal(t, CircuitBreakerStateClosed, conn.CircuitBreakerState())
}
