package teamspeak

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/pior/teamspeak/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		key     string
		message string
	}{
		{"missing host", Config{Port: 10011}, "host", "teamspeak: config must have a key for 'host'"},
		{"missing port", Config{Host: "localhost"}, "port", "teamspeak: config must have a key for 'port'"},
		{"port out of range", Config{Host: "localhost", Port: 70000}, "port", "teamspeak: invalid config key 'port': must be in 1..65535"},
		{"negative timeout", Config{Host: "localhost", Port: 1, Timeout: -time.Second}, "timeout", "teamspeak: invalid config key 'timeout': must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransport(tt.cfg)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
			assert.EqualError(t, err, tt.message)
			assert.False(t, ShouldCloseConnection(err))
		})
	}
}

func TestNewTransport_Defaults(t *testing.T) {
	tr, err := NewTransport(Config{Host: "localhost", Port: DefaultQueryPort})
	require.NoError(t, err)

	cfg := tr.Config()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.NotNil(t, cfg.Dialer)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, "localhost:10011", tr.Addr())
	assert.False(t, tr.Connected())
}

func TestTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tr, err := NewTransport(Config{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	require.NoError(t, err)

	err = tr.Connect(context.Background())
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, tr.Addr(), connErr.Addr)
	assert.False(t, connErr.IsDNS())
	assert.NotEmpty(t, connErr.Class())
	assert.True(t, ShouldCloseConnection(err))
	assert.False(t, tr.Connected())
}

func TestTransport_ConnectDialerError(t *testing.T) {
	dialErr := errors.New("boom")
	tr, err := NewTransport(Config{Host: "ts.example.com", Port: 10011, Dialer: &testutils.MockDialer{Err: dialErr}})
	require.NoError(t, err)

	err = tr.Connect(context.Background())
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, errclass.EGENERIC, connErr.Class())
}

func TestTransport_ConnectBadHost(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}
	tr, err := NewTransport(Config{Host: "nowhere.invalid", Port: 10011, Dialer: &testutils.MockDialer{Err: &net.OpError{Op: "dial", Net: "tcp", Err: dnsErr}}})
	require.NoError(t, err)

	err = tr.Connect(context.Background())
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.IsDNS())
}

func TestTransport_DisconnectNeverConnected(t *testing.T) {
	tr, err := NewTransport(Config{Host: "localhost", Port: 10011})
	require.NoError(t, err)

	assert.NoError(t, tr.Disconnect())
	assert.NoError(t, tr.Disconnect())
}

func TestTransport_NotConnected(t *testing.T) {
	tr, err := NewTransport(Config{Host: "localhost", Port: 10011})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = tr.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	err = tr.WriteLine(ctx, "version")
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTransport_ReadLineStripsTerminators(t *testing.T) {
	mock := testutils.NewConnectionMock(testutils.Ident, "version=3.13.7 build=1")
	tr, err := NewTransport(Config{Host: "localhost", Port: 10011, Dialer: &testutils.MockDialer{Conn: mock}})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	line, err := tr.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TS3", line)

	line, err = tr.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "version=3.13.7 build=1", line)

	_, err = tr.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTransport_WriteLine(t *testing.T) {
	mock := testutils.NewConnectionMock()
	tr, err := NewTransport(Config{Host: "localhost", Port: 10011, Dialer: &testutils.MockDialer{Conn: mock}})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	require.NoError(t, tr.WriteLine(ctx, "clientlist -uid"))
	assert.Equal(t, "clientlist -uid\n", mock.GetWrittenRequest())

	require.NoError(t, tr.Disconnect())
	assert.True(t, mock.Closed())

	err = tr.WriteLine(ctx, "version")
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTransport_ReadTimeout(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	tr, err := NewTransport(Config{Host: srv.Host(), Port: srv.Port(), Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))
	defer tr.Disconnect()

	// greeting
	_, err = tr.ReadLine(ctx)
	require.NoError(t, err)
	_, err = tr.ReadLine(ctx)
	require.NoError(t, err)

	_, err = tr.ReadLine(ctx)
	var timeoutErr *ReadTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, ShouldCloseConnection(err))
}

func TestTransport_ReadLineContextCanceled(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	tr, err := NewTransport(Config{Host: srv.Host(), Port: srv.Port()})
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Disconnect()

	for range 2 {
		_, err = tr.ReadLine(context.Background())
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = tr.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTransport_DisconnectUnblocksReader(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	tr, err := NewTransport(Config{Host: srv.Host(), Port: srv.Port()})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	for range 2 {
		_, err = tr.ReadLine(ctx)
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := tr.ReadLine(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tr.Disconnect())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after Disconnect")
	}
}
