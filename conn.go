package teamspeak

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/pior/teamspeak/internal/coarsetime"
	"github.com/pior/teamspeak/query"
)

// State is the lifecycle state of a Conn.
type State int32

const (
	// StateClosed means the connection is not usable: never connected,
	// disconnected, or broken by a transport or decode failure.
	StateClosed State = iota
	StateIdle
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting-reply"
	default:
		return "unknown"
	}
}

// EventListener receives unsolicited notifications. Listeners run on the
// goroutine that is reading the connection and must not call back into the
// same Conn.
type EventListener func(ev query.Event)

type listenerEntry struct {
	id uint64
	fn EventListener
}

// Conn drives a Transport using the query codec.
//
// At most one command awaits its reply at a time: Execute, Request and Wait
// serialize on an internal mutex, concurrent callers block until the
// previous terminator line was read.
type Conn struct {
	cfg       Config
	transport *Transport
	logger    SLogger
	breaker   CircuitBreaker // nil if not configured

	mu          sync.Mutex // serializes exchanges
	greeting    string
	selected    int64 // selected virtual server id, 0 when none
	lastCommand time.Time

	state    atomic.Int32
	lastUsed atomic.Int64 // unix nanoseconds, coarse

	listenersMu sync.RWMutex
	listeners   []listenerEntry
	nextID      uint64

	stats connStatsCollector
}

// NewConn validates cfg and returns a disconnected Conn.
func NewConn(cfg Config) (*Conn, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	cfg = transport.Config()

	c := &Conn{
		cfg:       cfg,
		transport: transport,
		logger:    cfg.Logger,
	}
	if cfg.NewCircuitBreaker != nil {
		c.breaker = cfg.NewCircuitBreaker(transport.Addr())
	}
	return c, nil
}

// Dial creates a Conn and connects it.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	c, err := NewConn(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the transport and consumes the server greeting. The first
// line must carry the TS3 ident.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateClosed {
		return nil
	}

	if err := c.transport.Connect(ctx); err != nil {
		return err
	}

	ident, err := c.transport.ReadLine(ctx)
	if err != nil {
		c.transport.Disconnect()
		return err
	}
	if !strings.HasPrefix(ident, query.Ident) {
		c.transport.Disconnect()
		return &query.DecodeError{Line: ident, Message: "invalid reply from the server"}
	}

	greeting, err := c.transport.ReadLine(ctx)
	if err != nil {
		c.transport.Disconnect()
		return err
	}

	c.greeting = greeting
	c.selected = 0
	c.touch()
	c.state.Store(int32(StateIdle))
	c.logger.Info("query greeting", "addr", c.transport.Addr(), "greeting", greeting)
	return nil
}

// Disconnect closes the connection. A command awaiting its reply fails with
// ErrConnectionClosed. Disconnect is idempotent.
func (c *Conn) Disconnect() error {
	c.state.Store(int32(StateClosed))
	return c.transport.Disconnect()
}

// Close is an alias for Disconnect.
func (c *Conn) Close() error {
	return c.Disconnect()
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Greeting returns the welcome line received on connect.
func (c *Conn) Greeting() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.greeting
}

// Addr returns the server address.
func (c *Conn) Addr() string {
	return c.transport.Addr()
}

// Config returns the effective configuration.
func (c *Conn) Config() Config {
	return c.cfg
}

// Transport returns the underlying transport.
func (c *Conn) Transport() *Transport {
	return c.transport
}

// LastUsed returns the approximate time of the last completed exchange.
func (c *Conn) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// IdleFor returns the approximate time since the last completed exchange.
func (c *Conn) IdleFor() time.Duration {
	return coarsetime.Since(c.LastUsed())
}

func (c *Conn) touch() {
	c.lastUsed.Store(coarsetime.UnixNano())
}

// Selected returns the id of the virtual server selected with Use, or 0.
func (c *Conn) Selected() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Stats returns a snapshot of connection statistics.
func (c *Conn) Stats() ConnStats {
	return c.stats.snapshot()
}

// CircuitBreakerState returns the breaker state, or StateClosed of the
// breaker (healthy) when none is configured.
func (c *Conn) CircuitBreakerState() CircuitBreakerState {
	if c.breaker == nil {
		return CircuitBreakerStateClosed
	}
	return c.breaker.State()
}

// OnEvent registers a listener and returns a function removing it.
// Listeners are called in registration order.
func (c *Conn) OnEvent(fn EventListener) (unsubscribe func()) {
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Conn) dispatch(ev query.Event) {
	c.stats.recordEvent()
	c.logger.Debug("query event", "addr", c.transport.Addr(), "event", ev.Name)

	c.listenersMu.RLock()
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l.fn(ev)
	}
}

// Prepare serializes verb and params without sending anything.
func (c *Conn) Prepare(verb string, params ...query.Param) string {
	return query.Encode(query.NewCommand(verb, params...))
}

// Execute sends cmd and returns its reply.
//
// Event lines received before the terminator are dispatched to listeners.
// A non-zero status yields a *query.CommandError and no records. Transport
// and decode failures close the connection.
func (c *Conn) Execute(ctx context.Context, cmd query.Command) (*query.Reply, error) {
	return c.Request(ctx, query.Encode(cmd))
}

// Request sends a pre-serialized command line and returns its reply.
func (c *Conn) Request(ctx context.Context, line string) (*query.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange(ctx, line)
}

// ExecuteOn runs cmd with virtual server sid selected, issuing "use" first
// when another server is selected. Both commands run in one critical
// section, so no other command can change the selection in between.
func (c *Conn) ExecuteOn(ctx context.Context, sid int64, cmd query.Command) (*query.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sid != 0 && c.selected != sid {
		if _, err := c.exchange(ctx, query.Encode(query.NewCommand("use", query.P("sid", sid)))); err != nil {
			return nil, err
		}
		c.selected = sid
		c.logger.Info("query use", "addr", c.transport.Addr(), "sid", sid)
	}
	return c.exchange(ctx, query.Encode(cmd))
}

// exchange runs one request/reply cycle, through the circuit breaker when
// configured. Must be called with c.mu held.
func (c *Conn) exchange(ctx context.Context, line string) (*query.Reply, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, line)
	}
	return c.breaker.Execute(func() (*query.Reply, error) {
		return c.roundTrip(ctx, line)
	})
}

func (c *Conn) roundTrip(ctx context.Context, line string) (*query.Reply, error) {
	if c.State() == StateClosed {
		return nil, ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Nothing is sent yet, the conn stays usable
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	c.state.Store(int32(StateAwaitingReply))
	c.stats.recordCommand()

	if err := c.transport.WriteLine(ctx, line); err != nil {
		var writeErr *WriteError
		if !errors.As(err, &writeErr) {
			c.state.CompareAndSwap(int32(StateAwaitingReply), int32(StateIdle))
			return nil, err
		}
		return nil, c.fail(err)
	}
	c.lastCommand = time.Now()

	var rr query.ReplyReader
	for {
		l, err := c.transport.ReadLine(ctx)
		if err != nil {
			return nil, c.fail(err)
		}

		reply, ev, err := rr.Feed(l)
		var cmdErr *query.CommandError
		switch {
		case errors.As(err, &cmdErr):
			c.state.CompareAndSwap(int32(StateAwaitingReply), int32(StateIdle))
			c.touch()
			c.stats.recordCommandError()
			c.logger.Info("query command failed", "addr", c.transport.Addr(), "verb", verbOf(line), "id", cmdErr.ID, "msg", cmdErr.Message)
			return nil, err
		case err != nil:
			return nil, c.fail(err)
		case ev != nil:
			c.dispatch(*ev)
		case reply != nil:
			c.state.CompareAndSwap(int32(StateAwaitingReply), int32(StateIdle))
			c.touch()
			return reply, nil
		}
	}
}

// fail closes the connection after a transport or decode error.
func (c *Conn) fail(err error) error {
	c.stats.recordFailure()
	c.logger.Info("query connection failed", "addr", c.transport.Addr(), "err", err, "errClass", errclass.New(err))
	c.state.Store(int32(StateClosed))
	c.transport.Disconnect()
	return err
}

// throttle waits until CommandInterval has passed since the last command.
func (c *Conn) throttle(ctx context.Context) error {
	if c.cfg.CommandInterval <= 0 || c.lastCommand.IsZero() {
		return nil
	}
	wait := c.cfg.CommandInterval - time.Since(c.lastCommand)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until an event arrives while no command is in flight,
// dispatches it to the listeners and returns it. Status and data lines
// received while waiting are a protocol violation.
func (c *Conn) Wait(ctx context.Context) (query.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateClosed {
		return query.Event{}, ErrConnectionClosed
	}

	for {
		l, err := c.transport.ReadLine(ctx)
		if err != nil {
			var timeout *ReadTimeoutError
			if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				// Nothing was in flight, the stream is still in sync
				return query.Event{}, err
			}
			return query.Event{}, c.fail(err)
		}
		if l == "" {
			continue
		}
		if query.Classify(l) != query.LineEvent {
			return query.Event{}, c.fail(&query.DecodeError{Line: l, Message: "unexpected line while waiting for events"})
		}

		ev, err := query.ParseEvent(l)
		if err != nil {
			return query.Event{}, c.fail(err)
		}
		c.touch()
		c.dispatch(ev)
		return ev, nil
	}
}

func verbOf(line string) string {
	verb, _, _ := strings.Cut(line, query.CellSeparator)
	return verb
}

// --- session helpers ---

// Login authenticates the query client.
func (c *Conn) Login(ctx context.Context, username, password string) error {
	_, err := c.Execute(ctx, query.NewCommand(loginVerb,
		query.P("client_login_name", username),
		query.P("client_login_password", password),
	))
	if err != nil {
		return fmt.Errorf("login as %s: %w", username, err)
	}
	c.logger.Info("query login", "addr", c.transport.Addr(), "user", username)
	return nil
}

// Logout drops the authentication and the selected virtual server.
func (c *Conn) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.exchange(ctx, "logout"); err != nil {
		return err
	}
	c.selected = 0
	return nil
}

// Use selects a virtual server by id.
func (c *Conn) Use(ctx context.Context, sid int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.exchange(ctx, query.Encode(query.NewCommand("use", query.P("sid", sid)))); err != nil {
		return err
	}
	c.selected = sid
	c.logger.Info("query use", "addr", c.transport.Addr(), "sid", sid)
	return nil
}

// UsePort selects a virtual server by voice port.
func (c *Conn) UsePort(ctx context.Context, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.exchange(ctx, query.Encode(query.NewCommand("use", query.P("port", port)))); err != nil {
		return err
	}
	reply, err := c.exchange(ctx, "whoami")
	if err != nil {
		return err
	}
	c.selected = reply.First().Int("virtualserver_id", 0)
	c.logger.Info("query use", "addr", c.transport.Addr(), "port", port, "sid", c.selected)
	return nil
}

// WhoAmI returns information about the query client itself.
func (c *Conn) WhoAmI(ctx context.Context) (query.Record, error) {
	reply, err := c.Execute(ctx, query.NewCommand("whoami"))
	if err != nil {
		return nil, err
	}
	return reply.First(), nil
}

// Version returns the server version record.
func (c *Conn) Version(ctx context.Context) (query.Record, error) {
	reply, err := c.Execute(ctx, query.NewCommand("version"))
	if err != nil {
		return nil, err
	}
	return reply.First(), nil
}

// RegisterEvent subscribes the connection to an event class ("server",
// "channel", "textserver", "textchannel", "textprivate"). id is the channel
// id for "channel" and ignored otherwise.
func (c *Conn) RegisterEvent(ctx context.Context, event string, id int64) error {
	cmd := query.NewCommand("servernotifyregister", query.P("event", event))
	if event == "channel" {
		cmd = cmd.WithParams(query.P("id", id))
	}
	_, err := c.Execute(ctx, cmd)
	return err
}

// UnregisterEvents drops all event subscriptions.
func (c *Conn) UnregisterEvents(ctx context.Context) error {
	_, err := c.Execute(ctx, query.NewCommand("servernotifyunregister"))
	return err
}

// Quit asks the server to close the connection and disconnects.
func (c *Conn) Quit(ctx context.Context) error {
	c.mu.Lock()
	if c.State() != StateClosed {
		// The server closes the socket after its status line
		if _, err := c.exchange(ctx, "quit"); err != nil {
			c.logger.Debug("query quit failed", "addr", c.transport.Addr(), "err", err)
		}
	}
	c.mu.Unlock()
	return c.Disconnect()
}
