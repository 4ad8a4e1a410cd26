package teamspeak

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pior/teamspeak/query"
)

// KickReason selects what a client is kicked from.
type KickReason int

const (
	KickFromChannel KickReason = 4
	KickFromServer  KickReason = 5
)

// Text message target modes.
const (
	targetClient  = 1
	targetChannel = 2
	targetServer  = 3
)

// Server is a virtual server. Its children are the top level channels.
//
// The server caches its channel and client lists. Channel and client nodes
// are built from those lists, so one channellist and one clientlist request
// serve the whole subtree until the lists are invalidated.
type Server struct {
	*node
	host *Host

	listMu         sync.Mutex
	channels       []*Channel
	channelsLoaded bool
	clients        []*Client
	clientsLoaded  bool
	listGen        uint64 // bumped by ResetLists
}

func newServer(h *Host, sid int64, seed query.Record) *Server {
	s := &Server{node: newNode(KindServer, sid, sid, h, h.conn, seed), host: h}
	s.self = s

	s.fetchInfo = func(ctx context.Context) (query.Record, error) {
		reply, err := s.Execute(ctx, "serverinfo")
		if err != nil {
			return nil, err
		}
		return reply.First(), nil
	}
	s.fetchChildren = func(ctx context.Context) ([]Node, error) {
		channels, err := s.channelList(ctx)
		if err != nil {
			return nil, err
		}
		var children []Node
		for _, ch := range channels {
			if ch.parent == Node(s) {
				children = append(children, ch)
			}
		}
		return children, nil
	}
	s.modify = func(ctx context.Context, props query.Params) error {
		_, err := s.Execute(ctx, "serveredit", props...)
		return err
	}

	s.ops[OpServerInfo] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return s.Execute(ctx, "serverinfo", params...)
	}
	s.ops[OpChannelList] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return s.Execute(ctx, "channellist", params...)
	}
	s.ops[OpClientList] = func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return s.Execute(ctx, "clientlist", params...)
	}
	s.ops[OpMessage] = s.messageOp(targetServer, sid)
	return s
}

func (s *Server) messageOp(mode int, target int64) OpFunc {
	return func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		base := []query.Param{query.P("targetmode", mode), query.P("target", target)}
		return s.Execute(ctx, "sendtextmessage", append(base, params...)...)
	}
}

// Host returns the instance the server runs on.
func (s *Server) Host() *Host { return s.host }

// Message sends a text message to the whole virtual server.
func (s *Server) Message(ctx context.Context, msg string) error {
	_, err := s.Call(ctx, OpMessage, query.P("msg", msg))
	return err
}

func (s *Server) channelList(ctx context.Context) ([]*Channel, error) {
	s.listMu.Lock()
	if s.channelsLoaded {
		channels := slices.Clone(s.channels)
		s.listMu.Unlock()
		return channels, nil
	}
	s.listMu.Unlock()

	reply, err := s.exec(ctx, query.NewCommand("channellist").WithFlags("-topic", "-flags", "-voice", "-limits", "-icon"))
	if err != nil {
		return nil, err
	}
	channels := s.buildChannels(reply.Records)

	s.listMu.Lock()
	s.channels = channels
	s.channelsLoaded = true
	s.listMu.Unlock()
	return slices.Clone(channels), nil
}

// buildChannels creates channel nodes in list order, resolving parents
// through pid. Channels whose parent is missing hang off the server.
func (s *Server) buildChannels(records []query.Record) []*Channel {
	byID := make(map[int64]query.Record, len(records))
	for _, rec := range records {
		byID[rec.Int("cid", 0)] = rec
	}

	built := make(map[int64]*Channel, len(records))
	visiting := make(map[int64]bool)
	var build func(cid int64) *Channel
	build = func(cid int64) *Channel {
		if ch, ok := built[cid]; ok {
			return ch
		}
		rec := byID[cid]
		visiting[cid] = true

		var parent Node = s
		if pid := rec.Int("pid", 0); pid != 0 && !visiting[pid] {
			if _, ok := byID[pid]; ok {
				parent = build(pid)
			}
		}
		ch := newChannel(s, parent, cid, rec)
		built[cid] = ch
		delete(visiting, cid)
		return ch
	}

	channels := make([]*Channel, 0, len(records))
	for _, rec := range records {
		channels = append(channels, build(rec.Int("cid", 0)))
	}
	return channels
}

func (s *Server) clientList(ctx context.Context) ([]*Client, error) {
	s.listMu.Lock()
	if s.clientsLoaded {
		clients := slices.Clone(s.clients)
		s.listMu.Unlock()
		return clients, nil
	}
	s.listMu.Unlock()

	channels, err := s.channelList(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := s.exec(ctx, query.NewCommand("clientlist").
		WithFlags("-uid", "-away", "-voice", "-times", "-groups", "-info", "-icon", "-country"))
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Channel, len(channels))
	for _, ch := range channels {
		byID[ch.id] = ch
	}
	clients := make([]*Client, 0, reply.Len())
	for _, rec := range reply.Records {
		var parent Node = s
		if ch, ok := byID[rec.Int("cid", 0)]; ok {
			parent = ch
		}
		clients = append(clients, newClient(s, parent, rec.Int("clid", 0), rec))
	}

	s.listMu.Lock()
	s.clients = clients
	s.clientsLoaded = true
	s.listMu.Unlock()
	return slices.Clone(clients), nil
}

// ChannelList returns the channels matching rules in server order.
func (s *Server) ChannelList(ctx context.Context, rules Rules) ([]*Channel, error) {
	channels, err := s.channelList(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(channels, rules), nil
}

// ClientList returns the connected clients matching rules.
func (s *Server) ClientList(ctx context.Context, rules Rules) ([]*Client, error) {
	clients, err := s.clientList(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(clients, rules), nil
}

// ResetLists drops the cached channel and client lists. Every channel of
// the server, listed or addressed by id, loses its cached children too.
func (s *Server) ResetLists() {
	s.listMu.Lock()
	s.channels, s.channelsLoaded = nil, false
	s.clients, s.clientsLoaded = nil, false
	s.listGen++
	s.listMu.Unlock()

	s.ResetChildren()
}

func (s *Server) generation() uint64 {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	return s.listGen
}

// Channel returns a node for channel cid without listing channels.
func (s *Server) Channel(cid int64) *Channel {
	return newChannel(s, s, cid, query.Record{"cid": query.IntValue(cid)})
}

// Client returns a node for client clid without listing clients.
func (s *Server) Client(clid int64) *Client {
	return newClient(s, s, clid, query.Record{"clid": query.IntValue(clid)})
}

// ChannelByID looks up a channel by id.
func (s *Server) ChannelByID(ctx context.Context, cid int64) (*Channel, error) {
	return s.findChannel(ctx, func(ch *Channel) bool { return ch.id == cid })
}

// ChannelByName looks up a channel by exact name.
func (s *Server) ChannelByName(ctx context.Context, name string) (*Channel, error) {
	return s.findChannel(ctx, func(ch *Channel) bool {
		return ch.cached("channel_name").String() == name
	})
}

func (s *Server) findChannel(ctx context.Context, match func(*Channel) bool) (*Channel, error) {
	channels, err := s.channelList(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if match(ch) {
			return ch, nil
		}
	}
	return nil, &query.CommandError{ID: query.StatusInvalidChannelID, Message: "invalid channelID"}
}

// ClientByID looks up a connected client by its connection id.
func (s *Server) ClientByID(ctx context.Context, clid int64) (*Client, error) {
	return s.findClient(ctx, func(c *Client) bool { return c.id == clid })
}

// ClientByName looks up a connected client by exact nickname.
func (s *Server) ClientByName(ctx context.Context, name string) (*Client, error) {
	return s.findClient(ctx, func(c *Client) bool {
		return c.cached("client_nickname").String() == name
	})
}

// ClientByUID looks up a connected client by its unique identifier.
func (s *Server) ClientByUID(ctx context.Context, uid string) (*Client, error) {
	return s.findClient(ctx, func(c *Client) bool {
		return c.cached("client_unique_identifier").String() == uid
	})
}

func (s *Server) findClient(ctx context.Context, match func(*Client) bool) (*Client, error) {
	clients, err := s.clientList(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if match(c) {
			return c, nil
		}
	}
	return nil, &query.CommandError{ID: query.StatusInvalidClientID, Message: "invalid clientID"}
}

// ChannelCreate creates a channel and returns its id.
func (s *Server) ChannelCreate(ctx context.Context, props ...query.Param) (int64, error) {
	reply, err := s.Execute(ctx, "channelcreate", props...)
	if err != nil {
		return 0, err
	}
	s.ResetLists()
	return reply.First().Int("cid", 0), nil
}

// ChannelDelete deletes channel cid. Without force, deleting a channel with
// clients in it fails.
func (s *Server) ChannelDelete(ctx context.Context, cid int64, force bool) error {
	return s.mutate(ctx, "channeldelete", query.P("cid", cid), query.P("force", force))
}

// ChannelMove moves channel cid below channel pid, 0 for the top level.
func (s *Server) ChannelMove(ctx context.Context, cid, pid int64) error {
	return s.mutate(ctx, "channelmove", query.P("cid", cid), query.P("cpid", pid))
}

// ClientMove moves client clid into channel cid.
func (s *Server) ClientMove(ctx context.Context, clid, cid int64) error {
	return s.mutate(ctx, "clientmove", query.P("clid", clid), query.P("cid", cid))
}

// ClientKick kicks client clid from its channel or from the server.
func (s *Server) ClientKick(ctx context.Context, clid int64, reason KickReason, msg string) error {
	params := []query.Param{query.P("clid", clid), query.P("reasonid", int(reason))}
	if msg != "" {
		params = append(params, query.P("reasonmsg", msg))
	}
	return s.mutate(ctx, "clientkick", params...)
}

// ClientPoke sends a poke message to client clid.
func (s *Server) ClientPoke(ctx context.Context, clid int64, msg string) error {
	_, err := s.Execute(ctx, "clientpoke", query.P("clid", clid), query.P("msg", msg))
	return err
}

// mutate runs a structural command and invalidates the lists it affects.
func (s *Server) mutate(ctx context.Context, verb string, params ...query.Param) error {
	if _, err := s.Execute(ctx, verb, params...); err != nil {
		return err
	}
	s.ResetLists()
	return nil
}

// UniqueID returns a stable identifier for the node.
func (s *Server) UniqueID() string {
	return fmt.Sprintf("ts3_s%d", s.id)
}

// Icon returns the icon name of the node, from cached properties only.
func (s *Server) Icon() string {
	online := s.cached("virtualserver_clientsonline").IntOr(0) - s.cached("virtualserver_queryclientsonline").IntOr(0)
	switch {
	case s.cached("virtualserver_maxclients").IntOr(-1) >= 0 && online >= s.cached("virtualserver_maxclients").IntOr(0):
		return "server_full"
	case s.cached("virtualserver_flag_password").Bool():
		return "server_pass"
	default:
		return "server_open"
	}
}

// Symbol returns a one character marker used by text viewers.
func (s *Server) Symbol() string { return "$" }

// Class returns a CSS class name for the node.
func (s *Server) Class(prefix string) string { return prefix + "server" }

func (s *Server) String() string {
	if name := s.cached("virtualserver_name").String(); name != "" {
		return name
	}
	return fmt.Sprintf("server %d", s.id)
}
