package teamspeak

import (
	"context"

	"github.com/pior/teamspeak/query"
)

// Host is the root of a node tree: the ServerQuery instance reached by a
// Conn. Its children are the virtual servers. Host properties are read only.
type Host struct {
	*node
}

// NewHost returns the root node for conn.
func NewHost(conn *Conn) *Host {
	h := &Host{node: newNode(KindHost, 0, 0, nil, conn, nil)}
	h.self = h

	h.fetchInfo = h.hostInfo
	h.fetchChildren = h.fetchServers

	h.ops[OpVersion] = h.simpleOp("version")
	h.ops[OpWhoAmI] = h.simpleOp("whoami")
	h.ops[OpHostInfo] = h.simpleOp("hostinfo")
	h.ops[OpInstanceInfo] = h.simpleOp("instanceinfo")
	return h
}

func (h *Host) simpleOp(verb string) OpFunc {
	return func(ctx context.Context, params ...query.Param) (*query.Reply, error) {
		return h.conn.Execute(ctx, query.NewCommand(verb, params...))
	}
}

func (h *Host) hostInfo(ctx context.Context) (query.Record, error) {
	info := query.Record{}
	for _, verb := range []string{"hostinfo", "instanceinfo"} {
		reply, err := h.conn.Execute(ctx, query.NewCommand(verb))
		if err != nil {
			return nil, err
		}
		for k, v := range reply.First() {
			info[k] = v
		}
	}
	return info, nil
}

// ServerList returns the virtual servers matching rules, loading the list on
// first access. A nil rules keeps every server.
func (h *Host) ServerList(ctx context.Context, rules Rules) ([]*Server, error) {
	children, err := h.Children(ctx)
	if err != nil {
		return nil, err
	}
	servers := make([]*Server, 0, len(children))
	for _, n := range children {
		servers = append(servers, n.(*Server))
	}
	return Filter(servers, rules), nil
}

func (h *Host) fetchServers(ctx context.Context) ([]Node, error) {
	reply, err := h.conn.Execute(ctx, query.NewCommand("serverlist").WithFlags("-uid"))
	if err != nil {
		return nil, err
	}
	servers := make([]Node, 0, reply.Len())
	for _, rec := range reply.Records {
		servers = append(servers, newServer(h, rec.Int("virtualserver_id", 0), rec))
	}
	return servers, nil
}

// Server returns a node for the virtual server sid without listing servers.
func (h *Host) Server(sid int64) *Server {
	return newServer(h, sid, query.Record{"virtualserver_id": query.IntValue(sid)})
}

// ServerByID looks up a virtual server by id.
func (h *Host) ServerByID(ctx context.Context, sid int64) (*Server, error) {
	return h.findServer(ctx, func(s *Server) bool { return s.id == sid })
}

// ServerByPort looks up a virtual server by its voice port.
func (h *Host) ServerByPort(ctx context.Context, port int) (*Server, error) {
	return h.findServer(ctx, func(s *Server) bool {
		return s.cached("virtualserver_port").IntOr(-1) == int64(port)
	})
}

// ServerByName looks up a virtual server by exact name.
func (h *Host) ServerByName(ctx context.Context, name string) (*Server, error) {
	return h.findServer(ctx, func(s *Server) bool {
		return s.cached("virtualserver_name").String() == name
	})
}

func (h *Host) findServer(ctx context.Context, match func(*Server) bool) (*Server, error) {
	servers, err := h.ServerList(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, s := range servers {
		if match(s) {
			return s, nil
		}
	}
	return nil, &query.CommandError{ID: query.StatusInvalidServerID, Message: "invalid serverID"}
}

// ServerCreate creates a virtual server and returns its id and the
// privilege key generated for it.
func (h *Host) ServerCreate(ctx context.Context, props ...query.Param) (sid int64, token string, err error) {
	reply, err := h.conn.Execute(ctx, query.NewCommand("servercreate", props...))
	if err != nil {
		return 0, "", err
	}
	h.ResetChildren()

	rec := reply.First()
	return rec.Int("sid", 0), rec.String("token"), nil
}

// ServerDelete deletes the virtual server sid.
func (h *Host) ServerDelete(ctx context.Context, sid int64) error {
	return h.serverCommand(ctx, "serverdelete", sid)
}

// ServerStart starts the virtual server sid.
func (h *Host) ServerStart(ctx context.Context, sid int64) error {
	return h.serverCommand(ctx, "serverstart", sid)
}

// ServerStop stops the virtual server sid.
func (h *Host) ServerStop(ctx context.Context, sid int64) error {
	return h.serverCommand(ctx, "serverstop", sid)
}

func (h *Host) serverCommand(ctx context.Context, verb string, sid int64) error {
	_, err := h.conn.Execute(ctx, query.NewCommand(verb, query.P("sid", sid)))
	if err != nil {
		return err
	}
	h.ResetChildren()
	return nil
}

// UniqueID returns a stable identifier for the node.
func (h *Host) UniqueID() string { return "ts3_h" }

// Icon returns the icon name of the node.
func (h *Host) Icon() string { return "host" }

// Symbol returns a one character marker used by text viewers.
func (h *Host) Symbol() string { return "+" }

// Class returns a CSS class name for the node.
func (h *Host) Class(prefix string) string { return prefix + "host" }

func (h *Host) String() string {
	return h.conn.Addr()
}
