package teamspeak

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pior/teamspeak/internal/testutils"
	"github.com/pior/teamspeak/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, srv *testutils.FakeServer, cfg PoolConfig) *Pool {
	t.Helper()

	cfg.Conn = testConfig(srv)
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 2
	}
	pool, err := NewPool(cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestNewPool_Validation(t *testing.T) {
	_, err := NewPool(PoolConfig{Conn: Config{Host: "localhost", Port: 10011}})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_size", cfgErr.Key)

	_, err = NewPool(PoolConfig{MaxSize: 1})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "host", cfgErr.Key)
}

func TestPool_SessionSetup(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{Username: "serveradmin", Password: "pw", ServerID: 1})

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pc.Conn().Selected())
	pc.Release()

	assert.Equal(t, []string{
		"login client_login_name=serveradmin client_login_password=pw",
		"use sid=1",
	}, srv.Received())
}

func TestPool_ReusesConnections(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{})
	ctx := context.Background()

	for range 5 {
		err := pool.With(ctx, func(conn *Conn) error {
			_, err := conn.WhoAmI(ctx)
			return err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, srv.Accepted())
	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.CreatedConns)
	assert.Equal(t, uint64(5), stats.AcquireCount)
	assert.Equal(t, int32(1), stats.IdleConns)
}

func TestPool_ConcurrentCallers(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{MaxSize: 3})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.With(ctx, func(conn *Conn) error {
				_, err := conn.WhoAmI(ctx)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, srv.Accepted(), 3)
	assert.LessOrEqual(t, pool.Stats().TotalConns, int32(3))
}

func TestPool_WithCommandErrorKeepsConnection(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	srv.Handle("serverinfo", `error id=1024 msg=invalid\sserverID`)
	pool := newTestPool(t, srv, PoolConfig{})
	ctx := context.Background()

	err := pool.With(ctx, func(conn *Conn) error {
		_, err := conn.Execute(ctx, query.NewCommand("serverinfo"))
		return err
	})
	var cmdErr *query.CommandError
	require.ErrorAs(t, err, &cmdErr)

	assert.Equal(t, int32(1), pool.Stats().IdleConns)
	assert.Equal(t, uint64(0), pool.Stats().DestroyedConns)
}

func TestPool_WithFailureDestroysConnection(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	srv.Handle("hostinfo", "=garbage", testutils.StatusOK)
	pool := newTestPool(t, srv, PoolConfig{})
	ctx := context.Background()

	err := pool.With(ctx, func(conn *Conn) error {
		_, err := conn.Execute(ctx, query.NewCommand("hostinfo"))
		return err
	})
	var decodeErr *query.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	assert.Eventually(t, func() bool {
		stats := pool.Stats()
		return stats.DestroyedConns == 1 && stats.TotalConns == 0
	}, time.Second, 10*time.Millisecond)
}

func TestPool_AcquireAfterClose(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{})
	pool.Close()

	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ConstructorError(t *testing.T) {
	dialErr := errors.New("no route")
	pool, err := NewPool(PoolConfig{
		MaxSize: 1,
		constructor: func(ctx context.Context) (*Conn, error) {
			return nil, dialErr
		},
	})
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, dialErr)
}

func TestPool_KeepAlive(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{KeepAliveInterval: 30 * time.Millisecond})

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pc.Release()

	assert.Eventually(t, func() bool {
		return pool.Stats().KeepAlives >= 2
	}, 2*time.Second, 10*time.Millisecond)

	verbs := srv.ReceivedVerbs()
	require.NotEmpty(t, verbs)
	assert.Equal(t, "whoami", verbs[0])
	assert.Equal(t, int32(1), pool.Stats().TotalConns)
}

func TestPool_KeepAliveDestroysIdleConnections(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{
		KeepAliveInterval: 20 * time.Millisecond,
		MaxConnIdleTime:   10 * time.Millisecond,
	})

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pc.Release()

	assert.Eventually(t, func() bool {
		for _, verb := range srv.ReceivedVerbs() {
			if verb == "quit" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), pool.Stats().DestroyedConns)
}

func TestPool_KeepAliveDestroysBrokenConnections(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	pool := newTestPool(t, srv, PoolConfig{KeepAliveInterval: 20 * time.Millisecond})

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pc.Release()

	srv.DropConnections()

	assert.Eventually(t, func() bool {
		return pool.Stats().DestroyedConns == 1
	}, 2*time.Second, 10*time.Millisecond)
}
