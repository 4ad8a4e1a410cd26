package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer struct{}

func (stringer) String() string { return "from stringer" }

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{
			name:     "verb only",
			cmd:      NewCommand("whoami"),
			expected: "whoami",
		},
		{
			name:     "single group keeps order",
			cmd:      NewCommand("use", P("sid", 1), P("virtual", nil)),
			expected: "use sid=1 virtual",
		},
		{
			name:     "escaped value",
			cmd:      NewCommand("login", P("client_login_name", "server admin"), P("client_login_password", "a|b/c")),
			expected: `login client_login_name=server\sadmin client_login_password=a\pb\/c`,
		},
		{
			name:     "multiple groups",
			cmd:      NewCommand("clientkick", P("reasonid", 5)).WithGroup(P("clid", 1)).WithGroup(P("clid", 2)),
			expected: "clientkick reasonid=5|clid=1|clid=2",
		},
		{
			name:     "flags",
			cmd:      NewCommand("clientlist").WithFlags("-uid", "-away"),
			expected: "clientlist -uid -away",
		},
		{
			name:     "groups and flags",
			cmd:      NewCommand("servergroupaddperm", P("sgid", 6)).WithGroup(P("permsid", "i_icon_id"), P("permvalue", int64(-1))).WithFlags("-continueonerror"),
			expected: "servergroupaddperm sgid=6|permsid=i_icon_id permvalue=-1 -continueonerror",
		},
		{
			name:     "scalar kinds",
			cmd:      NewCommand("x", P("b", true), P("f", 0.5), P("u", uint16(7)), P("v", IntValue(3)), P("s", stringer{})),
			expected: `x b=1 f=0.5 u=7 v=3 s=from\sstringer`,
		},
		{
			name:     "empty groups are skipped",
			cmd:      NewCommand("x").WithGroup().WithGroup(P("a", "")),
			expected: "x a=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.cmd))
			assert.Equal(t, tt.expected, tt.cmd.String())
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	cmd := NewCommand("channeledit", P("cid", 4), P("channel_name", "lobby"), P("channel_topic", "a b")).WithFlags("-x")

	first := Encode(cmd)
	for range 50 {
		require.Equal(t, first, Encode(cmd))
	}
}

func TestCommandIsImmutable(t *testing.T) {
	base := NewCommand("clientlist", P("a", 1))
	withFlags := base.WithFlags("-uid")
	withParams := base.WithParams(P("b", 2))

	assert.Equal(t, "clientlist a=1", base.String())
	assert.Equal(t, "clientlist a=1 -uid", withFlags.String())
	assert.Equal(t, "clientlist a=1 b=2", withParams.String())

	groups := base.Groups()
	groups[0][0].Value = 99
	assert.Equal(t, "clientlist a=1", base.String())

	v, ok := withParams.Param("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}
