package testutils

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a net.Conn replaying a fixed server transcript.
// Reads return io.EOF once the transcript is consumed.
type ConnectionMock struct {
	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	closed   bool
}

// NewConnectionMock creates a mock connection that reads the given lines,
// each terminated the way the server terminates lines.
func NewConnectionMock(lines ...string) *ConnectionMock {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(LineEnd)
	}
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(b.String()),
		writeBuf: &bytes.Buffer{},
	}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *ConnectionMock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 10011}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// GetWrittenRequest returns everything written to the mock connection.
func (m *ConnectionMock) GetWrittenRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// MockDialer hands out a prepared connection.
type MockDialer struct {
	Conn net.Conn
	Err  error
}

func (d *MockDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}
