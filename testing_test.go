package teamspeak

import (
	"context"
	"testing"
	"time"

	"github.com/pior/teamspeak/internal/testutils"
	"github.com/stretchr/testify/require"
)

func testConfig(srv *testutils.FakeServer) Config {
	cfg := DefaultConfig(srv.Host(), srv.Port())
	cfg.Timeout = 2 * time.Second
	return cfg
}

// newTestConn dials srv and closes the connection when the test ends.
func newTestConn(t *testing.T, srv *testutils.FakeServer, opts ...func(*Config)) *Conn {
	t.Helper()

	cfg := testConfig(srv)
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}
