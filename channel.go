package teamspeak

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/pior/teamspeak/query"
)

// SpacerType is the line style of a spacer channel.
type SpacerType uint8

const (
	SpacerNone SpacerType = iota
	SpacerSolidLine
	SpacerDashLine
	SpacerDotLine
	SpacerDashDotLine
	SpacerDashDotDotLine
	SpacerCustom
)

// SpacerAlign is the text alignment of a spacer channel.
type SpacerAlign uint8

const (
	SpacerAlignLeft SpacerAlign = iota
	SpacerAlignRight
	SpacerAlignCenter
	SpacerAlignRepeat
)

var spacerPattern = regexp.MustCompile(`^\[([^\]]*)spacer[^\]]*\](.*)$`)

// Channel is a channel of a virtual server. Its children are its sub
// channels followed by the clients in it, or the reverse when
// Config.LoadClientsFirst is set.
type Channel struct {
	*node
	server *Server

	loadedGen atomic.Uint64 // server list generation the children come from
}

func newChannel(s *Server, parent Node, cid int64, seed query.Record) *Channel {
	ch := &Channel{node: newNode(KindChannel, cid, s.id, parent, s.conn, seed), server: s}
	ch.self = ch

	ch.fetchInfo = func(ctx context.Context) (query.Record, error) {
		reply, err := ch.Execute(ctx, "channelinfo", query.P("cid", cid))
		if err != nil {
			return nil, err
		}
		return reply.First(), nil
	}
	ch.fetchChildren = ch.loadChildren
	ch.modify = func(ctx context.Context, props query.Params) error {
		params := append([]query.Param{query.P("cid", cid)}, props...)
		_, err := ch.Execute(ctx, "channeledit", params...)
		return err
	}

	ch.ops[OpChannelInfo] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return ch.Execute(ctx, "channelinfo", append([]query.Param{query.P("cid", cid)}, params...)...)
	}
	ch.ops[OpMessage] = s.messageOp(targetChannel, cid)
	return ch
}

func (ch *Channel) loadChildren(ctx context.Context) ([]Node, error) {
	gen := ch.server.generation()
	channels, err := ch.server.channelList(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := ch.server.clientList(ctx)
	if err != nil {
		return nil, err
	}

	var subChannels, members []Node
	for _, sub := range channels {
		if ch.owns(sub) {
			subChannels = append(subChannels, sub)
		}
	}
	for _, c := range clients {
		if ch.owns(c) {
			members = append(members, c)
		}
	}
	ch.loadedGen.Store(gen)
	if ch.conn.cfg.LoadClientsFirst {
		return append(members, subChannels...), nil
	}
	return append(subChannels, members...), nil
}

// Children returns the sub channels and clients, reloading them when the
// server lists were invalidated since they were loaded.
func (ch *Channel) Children(ctx context.Context) ([]Node, error) {
	ch.dropStale()
	return ch.node.Children(ctx)
}

// Len returns the number of children.
func (ch *Channel) Len(ctx context.Context) (int, error) {
	children, err := ch.Children(ctx)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}

// ChildrenLoaded reports whether the children are loaded and current.
func (ch *Channel) ChildrenLoaded() bool {
	ch.dropStale()
	return ch.node.ChildrenLoaded()
}

func (ch *Channel) dropStale() {
	if ch.node.ChildrenLoaded() && ch.loadedGen.Load() != ch.server.generation() {
		ch.ResetChildren()
	}
}

// owns reports whether n hangs directly below a channel with this id.
func (ch *Channel) owns(n Node) bool {
	p := n.Parent()
	return p != nil && p.Kind() == KindChannel && p.ID() == ch.id
}

// Server returns the virtual server of the channel.
func (ch *Channel) Server() *Server { return ch.server }

// SubChannels returns the direct sub channels matching rules.
func (ch *Channel) SubChannels(ctx context.Context, rules Rules) ([]*Channel, error) {
	channels, err := ch.server.channelList(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Channel
	for _, sub := range channels {
		if ch.owns(sub) {
			out = append(out, sub)
		}
	}
	return Filter(out, rules), nil
}

// Clients returns the clients in the channel matching rules.
func (ch *Channel) Clients(ctx context.Context, rules Rules) ([]*Client, error) {
	clients, err := ch.server.clientList(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Client
	for _, c := range clients {
		if ch.owns(c) {
			out = append(out, c)
		}
	}
	return Filter(out, rules), nil
}

// Message sends a text message to the channel.
func (ch *Channel) Message(ctx context.Context, msg string) error {
	_, err := ch.Call(ctx, OpMessage, query.P("msg", msg))
	return err
}

// Delete deletes the channel.
func (ch *Channel) Delete(ctx context.Context, force bool) error {
	return ch.server.ChannelDelete(ctx, ch.id, force)
}

// Move moves the channel below pid, 0 for the top level.
func (ch *Channel) Move(ctx context.Context, pid int64) error {
	return ch.server.ChannelMove(ctx, ch.id, pid)
}

// IsSpacer reports whether the channel is a permanent top level channel
// named like "[cspacer]..." .
func (ch *Channel) IsSpacer() bool {
	return spacerPattern.MatchString(ch.cached("channel_name").String()) &&
		ch.cached("channel_flag_permanent").Bool() &&
		ch.cached("pid").IntOr(0) == 0
}

// SpacerType returns the line style of a spacer, SpacerNone for regular
// channels.
func (ch *Channel) SpacerType() SpacerType {
	if !ch.IsSpacer() {
		return SpacerNone
	}
	m := spacerPattern.FindStringSubmatch(ch.cached("channel_name").String())
	switch strings.TrimSpace(m[2]) {
	case "___":
		return SpacerSolidLine
	case "---":
		return SpacerDashLine
	case "...":
		return SpacerDotLine
	case "-.-":
		return SpacerDashDotLine
	case "-..":
		return SpacerDashDotDotLine
	default:
		return SpacerCustom
	}
}

// SpacerAlign returns the text alignment of a spacer.
func (ch *Channel) SpacerAlign() SpacerAlign {
	m := spacerPattern.FindStringSubmatch(ch.cached("channel_name").String())
	if m == nil {
		return SpacerAlignLeft
	}
	switch {
	case strings.HasSuffix(m[1], "*"):
		return SpacerAlignRepeat
	case strings.HasSuffix(m[1], "c"):
		return SpacerAlignCenter
	case strings.HasSuffix(m[1], "r"):
		return SpacerAlignRight
	default:
		return SpacerAlignLeft
	}
}

// UniqueID returns a stable identifier for the node.
func (ch *Channel) UniqueID() string {
	return fmt.Sprintf("ts3_s%d_ch%d", ch.server.id, ch.id)
}

// Icon returns the icon name of the node, from cached properties only.
func (ch *Channel) Icon() string {
	limit := ch.cached("channel_maxclients").IntOr(-1)
	switch {
	case limit == 0 || (limit != -1 && limit <= ch.cached("total_clients").IntOr(0)):
		return "channel_full"
	case ch.cached("channel_flag_password").Bool():
		return "channel_pass"
	default:
		return "channel_open"
	}
}

// Symbol returns a one character marker used by text viewers.
func (ch *Channel) Symbol() string { return "#" }

// Class returns a CSS class name for the node.
func (ch *Channel) Class(prefix string) string {
	if ch.IsSpacer() {
		return prefix + "spacer"
	}
	return prefix + "channel"
}

func (ch *Channel) String() string {
	if name := ch.cached("channel_name").String(); name != "" {
		return name
	}
	return fmt.Sprintf("channel %d", ch.id)
}
