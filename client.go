package teamspeak

import (
	"context"
	"fmt"

	"github.com/pior/teamspeak/query"
)

// Client is a client connected to a virtual server. Clients are leaves.
type Client struct {
	*node
	server *Server
}

func newClient(s *Server, parent Node, clid int64, seed query.Record) *Client {
	c := &Client{node: newNode(KindClient, clid, s.id, parent, s.conn, seed), server: s}
	c.self = c

	c.fetchInfo = func(ctx context.Context) (query.Record, error) {
		reply, err := c.Execute(ctx, "clientinfo", query.P("clid", clid))
		if err != nil {
			return nil, err
		}
		return reply.First(), nil
	}
	c.modify = func(ctx context.Context, props query.Params) error {
		params := append([]query.Param{query.P("clid", clid)}, props...)
		_, err := c.Execute(ctx, "clientedit", params...)
		return err
	}

	c.ops[OpClientInfo] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return c.Execute(ctx, "clientinfo", append([]query.Param{query.P("clid", clid)}, params...)...)
	}
	c.ops[OpMessage] = s.messageOp(targetClient, clid)
	c.ops[OpPoke] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return c.Execute(ctx, "clientpoke", append([]query.Param{query.P("clid", clid)}, params...)...)
	}
	return c
}

// Server returns the virtual server the client is connected to.
func (c *Client) Server() *Server { return c.server }

// IsQuery reports whether the client is a ServerQuery connection.
func (c *Client) IsQuery() bool {
	return c.cached("client_type").IntOr(0) == 1
}

// Message sends a private text message to the client.
func (c *Client) Message(ctx context.Context, msg string) error {
	_, err := c.Call(ctx, OpMessage, query.P("msg", msg))
	return err
}

// Poke sends a poke message to the client.
func (c *Client) Poke(ctx context.Context, msg string) error {
	_, err := c.Call(ctx, OpPoke, query.P("msg", msg))
	return err
}

// Move moves the client into channel cid.
func (c *Client) Move(ctx context.Context, cid int64) error {
	return c.server.ClientMove(ctx, c.id, cid)
}

// Kick kicks the client from its channel or from the server. An empty msg
// sends no reason message.
func (c *Client) Kick(ctx context.Context, reason KickReason, msg string) error {
	return c.server.ClientKick(ctx, c.id, reason, msg)
}

// flag returns a boolean property, def when it is not cached.
func (c *Client) flag(name string, def bool) bool {
	v, ok := c.lookup(name)
	if !ok {
		return def
	}
	return v.Bool()
}

// UniqueID returns a stable identifier for the node.
func (c *Client) UniqueID() string {
	return fmt.Sprintf("ts3_s%d_cl%d", c.server.id, c.id)
}

// Icon returns the icon name of the node, from cached properties only.
// Missing hardware flags count as present.
func (c *Client) Icon() string {
	talking := c.flag("client_flag_talking", false)
	switch {
	case c.IsQuery():
		return "client_query"
	case c.flag("client_away", false):
		return "client_away"
	case !c.flag("client_output_hardware", true):
		return "client_snd_disabled"
	case c.flag("client_output_muted", false):
		return "client_snd_muted"
	case !c.flag("client_input_hardware", true):
		return "client_mic_disabled"
	case c.flag("client_input_muted", false):
		return "client_mic_muted"
	case c.flag("client_is_channel_commander", false):
		if talking {
			return "client_cc_talk"
		}
		return "client_cc_idle"
	case talking:
		return "client_talk"
	default:
		return "client_idle"
	}
}

// Symbol returns a one character marker used by text viewers.
func (c *Client) Symbol() string { return "@" }

// Class returns a CSS class name for the node.
func (c *Client) Class(prefix string) string {
	if c.IsQuery() {
		return prefix + "query"
	}
	return prefix + "client"
}

func (c *Client) String() string {
	if name := c.cached("client_nickname").String(); name != "" {
		return name
	}
	return fmt.Sprintf("client %d", c.id)
}
