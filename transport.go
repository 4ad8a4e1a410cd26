package teamspeak

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/pior/teamspeak/query"
)

// Transport owns a single TCP connection and moves raw lines over it.
// It has no protocol knowledge.
//
// Connect, ReadLine and Write may block; Disconnect never does and may be
// called from any goroutine, failing a blocked ReadLine with
// ErrConnectionClosed.
type Transport struct {
	cfg  Config
	addr string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewTransport validates cfg and returns a disconnected transport.
func NewTransport(cfg Config) (*Transport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Transport{cfg: cfg, addr: cfg.Addr()}, nil
}

// Config returns the effective configuration.
func (t *Transport) Config() Config {
	return t.cfg
}

// Addr returns the host:port the transport connects to.
func (t *Transport) Addr() string {
	return t.addr
}

// Connected reports whether a socket is open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Connect opens the TCP connection within the configured timeout.
// It is a no-op when already connected.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	conn, err := t.cfg.Dialer.DialContext(dialCtx, "tcp", t.addr)
	if err != nil {
		t.cfg.Logger.Info("connect failed", "addr", t.addr, "err", err, "errClass", errclass.New(err))
		return &ConnectError{Addr: t.addr, Err: err}
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.cfg.Logger.Info("connected", "addr", t.addr, "localAddr", conn.LocalAddr().String())
	return nil
}

// Disconnect closes the socket. It is idempotent and safe on a transport
// that was never connected.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.reader = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	t.cfg.Logger.Info("disconnected", "addr", t.addr)
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (t *Transport) current() (net.Conn, *bufio.Reader) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn, t.reader
}

// deadline returns the earlier of now+timeout and the context deadline.
func (t *Transport) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(t.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// ReadLine blocks until a full line is available and returns it without
// the surrounding "\n" and "\r" characters.
func (t *Transport) ReadLine(ctx context.Context) (string, error) {
	conn, reader := t.current()
	if conn == nil {
		return "", ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := conn.SetReadDeadline(t.deadline(ctx)); err != nil {
		return "", t.readError(ctx, err)
	}

	// Expire the deadline when ctx is done so the read returns promptly
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", t.readError(ctx, err)
	}

	line = strings.Trim(line, "\r\n")
	t.cfg.Logger.Debug("read line", "addr", t.addr, "line", line)
	return line, nil
}

func (t *Transport) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || !t.Connected() {
		return ErrConnectionClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ReadTimeoutError{Timeout: t.cfg.Timeout.String(), Err: err}
	}
	return err
}

// Write sends raw bytes. It fails with a *WriteError when the socket is not
// connected.
func (t *Transport) Write(ctx context.Context, b []byte) error {
	conn, _ := t.current()
	if conn == nil {
		return &WriteError{Err: ErrConnectionClosed}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(t.deadline(ctx)); err != nil {
		return &WriteError{Err: err}
	}
	if _, err := conn.Write(b); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// loginVerb is the command sent by Conn.Login. WriteLine keeps its
// arguments, the credentials, out of the logs.
const loginVerb = "login"

// WriteLine sends line followed by the protocol newline.
func (t *Transport) WriteLine(ctx context.Context, line string) error {
	logged := line
	if verb, _, _ := strings.Cut(line, query.CellSeparator); verb == loginVerb {
		logged = loginVerb + " <redacted>"
	}
	t.cfg.Logger.Debug("write line", "addr", t.addr, "line", logged)
	return t.Write(ctx, []byte(line+"\n"))
}
