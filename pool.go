package teamspeak

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
)

// PoolConfig holds configuration for a pool of ServerQuery sessions.
type PoolConfig struct {
	// Conn is the configuration of every pooled connection.
	Conn Config

	// Username and Password, when set, log each new connection in.
	Username string
	Password string

	// ServerID, when non-zero, selects this virtual server on each new
	// connection.
	ServerID int64

	// MaxSize is the maximum number of connections in the pool.
	// Required: must be > 0.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// KeepAliveInterval is how often idle connections are checked and sent
	// a whoami, keeping them below the server's idle disconnect.
	// Zero disables keepalive.
	KeepAliveInterval time.Duration

	// for testing purposes only
	constructor func(ctx context.Context) (*Conn, error)
}

// Pool hands out exclusive, logged-in connections to concurrent callers.
// Each connection still runs one command at a time.
type Pool struct {
	cfg  PoolConfig
	pool *puddle.Pool[*Conn]

	createdConns   atomic.Int64
	destroyedConns atomic.Int64
	keepAlives     atomic.Int64

	stopKeepAlive chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// PooledConn is a connection borrowed from a Pool.
type PooledConn struct {
	res *puddle.Resource[*Conn]
}

// Conn returns the borrowed connection.
func (pc *PooledConn) Conn() *Conn {
	return pc.res.Value()
}

// Release returns the connection to the pool.
func (pc *PooledConn) Release() {
	pc.res.Release()
}

// Destroy closes the connection and removes it from the pool.
func (pc *PooledConn) Destroy() {
	pc.res.Destroy()
}

// NewPool creates a pool. Connections are opened lazily on Acquire.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.MaxSize <= 0 {
		return nil, &ConfigurationError{Key: "max_size", Reason: "must be > 0"}
	}

	p := &Pool{
		cfg:           cfg,
		stopKeepAlive: make(chan struct{}),
	}

	constructor := cfg.constructor
	if constructor == nil {
		if err := cfg.Conn.validate(); err != nil {
			return nil, err
		}
		constructor = p.dialSession
	}

	pool, err := puddle.NewPool(&puddle.Config[*Conn]{
		Constructor: func(ctx context.Context) (*Conn, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.createdConns.Add(1)
			}
			return conn, err
		},
		Destructor: func(c *Conn) {
			p.destroyedConns.Add(1)
			if err := c.Quit(context.Background()); err != nil {
				c.logger.Debug("pool quit failed", "addr", c.Addr(), "err", err)
			}
		},
		MaxSize: cfg.MaxSize,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool

	if cfg.KeepAliveInterval > 0 {
		p.wg.Add(1)
		go p.keepAliveLoop()
	}
	return p, nil
}

// dialSession opens, authenticates and positions a new connection.
func (p *Pool) dialSession(ctx context.Context) (*Conn, error) {
	conn, err := Dial(ctx, p.cfg.Conn)
	if err != nil {
		return nil, err
	}
	if p.cfg.Username != "" {
		if err := conn.Login(ctx, p.cfg.Username, p.cfg.Password); err != nil {
			conn.Disconnect()
			return nil, err
		}
	}
	if p.cfg.ServerID != 0 {
		if err := conn.Use(ctx, p.cfg.ServerID); err != nil {
			conn.Disconnect()
			return nil, err
		}
	}
	return conn, nil
}

// Acquire borrows a connection, opening one if none is idle and the pool
// isn't full. The caller must Release or Destroy it.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrPoolClosed
		}
		return nil, err
	}
	if res.Value().State() == StateClosed {
		res.Destroy()
		return p.Acquire(ctx)
	}
	return &PooledConn{res: res}, nil
}

// With runs fn on a borrowed connection. The connection is destroyed when fn
// returns an error that requires closing it, released otherwise.
func (p *Pool) With(ctx context.Context, fn func(conn *Conn) error) error {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	err = fn(pc.Conn())
	if ShouldCloseConnection(err) || pc.Conn().State() == StateClosed {
		pc.Destroy()
	} else {
		pc.Release()
	}
	return err
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.stopKeepAlive)
		p.wg.Wait()
		p.pool.Close()
	})
}

// keepAliveLoop periodically checks idle connections for health and lifecycle limits.
func (p *Pool) keepAliveLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopKeepAlive:
			return
		case <-ticker.C:
			p.checkIdle(context.Background())
		}
	}
}

// checkIdle destroys idle connections that are stale or unhealthy and sends
// a whoami on the others.
func (p *Pool) checkIdle(ctx context.Context) {
	now := time.Now()

	for _, res := range p.pool.AcquireAllIdle() {
		if p.cfg.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > p.cfg.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if p.cfg.MaxConnIdleTime > 0 && res.IdleDuration() > p.cfg.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		p.keepAlives.Add(1)
		if _, err := res.Value().WhoAmI(ctx); err != nil {
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
		KeepAlives:        uint64(p.keepAlives.Load()),
	}
}
