package teamspeak

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/pior/teamspeak/query"
)

// Kind identifies a node variant.
type Kind uint8

const (
	KindHost Kind = iota + 1
	KindServer
	KindChannel
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindServer:
		return "server"
	case KindChannel:
		return "channel"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// Operation names a command a node kind can run on behalf of the caller.
type Operation string

// Operations declared by the node kinds. Node.Call resolves an operation on
// the node first and then on each ancestor.
const (
	OpVersion      Operation = "version"      // Host
	OpWhoAmI       Operation = "whoami"       // Host
	OpHostInfo     Operation = "hostinfo"     // Host
	OpInstanceInfo Operation = "instanceinfo" // Host
	OpServerInfo   Operation = "serverinfo"   // Server
	OpChannelList  Operation = "channellist"  // Server
	OpClientList   Operation = "clientlist"   // Server
	OpChannelInfo  Operation = "channelinfo"  // Channel
	OpClientInfo   Operation = "clientinfo"   // Client
	OpMessage      Operation = "message"      // Server, Channel, Client
	OpPoke         Operation = "poke"         // Client
)

// OpFunc runs an operation with caller supplied parameters.
type OpFunc func(ctx context.Context, params ...query.Param) (*query.Reply, error)

// Node is the shared contract of Host, Server, Channel and Client.
//
// The set of implementations is closed: Node can only be implemented by the
// types of this package.
type Node interface {
	Kind() Kind
	ID() int64
	Parent() Node
	Conn() *Conn

	// Info returns the cached properties without I/O.
	Info() query.Record
	GetInfo(ctx context.Context, refresh bool) (query.Record, error)
	Refresh(ctx context.Context) error
	Reload(ctx context.Context) (changed bool, err error)
	GetProperty(ctx context.Context, name string, def query.Value) (query.Value, error)
	Get(ctx context.Context, name string) (query.Value, error)
	Set(ctx context.Context, name string, value any) error
	Modify(ctx context.Context, props ...query.Param) error

	Children(ctx context.Context) ([]Node, error)
	Len(ctx context.Context) (int, error)
	ResetInfo()
	ResetChildren()

	Call(ctx context.Context, op Operation, params ...query.Param) (*query.Reply, error)
	Supports(op Operation) bool

	UniqueID() string
	Icon() string
	Symbol() string
	Class(prefix string) string
	String() string

	base() *node
}

// node carries the state shared by every kind.
type node struct {
	kind   Kind
	id     int64
	sid    int64 // virtual server the node's commands run on, 0 for the host
	parent Node
	conn   *Conn
	self   Node
	seed   query.Record // discovery record, immutable

	ops           map[Operation]OpFunc
	fetchInfo     func(ctx context.Context) (query.Record, error)
	fetchChildren func(ctx context.Context) ([]Node, error)
	modify        func(ctx context.Context, props query.Params) error

	mu         sync.Mutex
	info       query.Record // snapshot, never mutated once installed
	infoLoaded bool
	children   []Node
	loaded     bool // children loaded
}

func newNode(kind Kind, id, sid int64, parent Node, conn *Conn, seed query.Record) *node {
	if seed == nil {
		seed = query.Record{}
	}
	seed = seed.Clone()
	return &node{
		kind:   kind,
		id:     id,
		sid:    sid,
		parent: parent,
		conn:   conn,
		seed:   seed,
		info:   seed,
		ops:    map[Operation]OpFunc{},
	}
}

func (n *node) base() *node { return n }

// Kind returns the node variant.
func (n *node) Kind() Kind { return n.kind }

// ID returns the node's primary key.
func (n *node) ID() int64 { return n.id }

// Parent returns the parent node, nil for the host.
func (n *node) Parent() Node { return n.parent }

// Conn returns the connection the node issues its commands on.
func (n *node) Conn() *Conn { return n.conn }

// Prepare serializes a command the way Execute would send it.
func (n *node) Prepare(verb string, params ...query.Param) string {
	return n.conn.Prepare(verb, params...)
}

// Execute runs a command in the context of the node's virtual server.
func (n *node) Execute(ctx context.Context, verb string, params ...query.Param) (*query.Reply, error) {
	return n.exec(ctx, query.NewCommand(verb, params...))
}

func (n *node) exec(ctx context.Context, cmd query.Command) (*query.Reply, error) {
	n.conn.logger.Debug("node command", "node", n.kind.String(), "id", n.id, "command", cmd.Verb())
	if n.sid == 0 {
		return n.conn.Execute(ctx, cmd)
	}
	return n.conn.ExecuteOn(ctx, n.sid, cmd)
}

// Info returns a copy of the cached properties.
func (n *node) Info() query.Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info.Clone()
}

func (n *node) lookup(name string) (query.Value, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.info[name]
	return v, ok
}

func (n *node) isInfoLoaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.infoLoaded
}

// GetInfo returns the node properties. With refresh set, the info command
// runs first when it never ran or the cache was invalidated.
func (n *node) GetInfo(ctx context.Context, refresh bool) (query.Record, error) {
	if refresh && !n.isInfoLoaded() {
		if err := n.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return n.Info(), nil
}

// Refresh runs the info command and replaces the cache with the discovery
// record plus the fetched properties. On error the cache is left untouched.
func (n *node) Refresh(ctx context.Context) error {
	_, err := n.Reload(ctx)
	return err
}

// Reload is Refresh reporting whether the new snapshot differs from the
// previous one.
func (n *node) Reload(ctx context.Context) (bool, error) {
	next := n.seed.Clone()
	if n.fetchInfo != nil {
		fetched, err := n.fetchInfo(ctx)
		if err != nil {
			return false, err
		}
		for k, v := range fetched {
			next[k] = v
		}
	}
	sum := next.Fingerprint()

	n.mu.Lock()
	changed := n.info.Fingerprint() != sum
	n.info = next
	n.infoLoaded = true
	n.mu.Unlock()

	n.conn.logger.Debug("node info refreshed", "node", n.kind.String(), "id", n.id, "changed", changed)
	return changed, nil
}

// InfoFingerprint hashes the cached properties, letting callers detect
// whether a refresh changed anything.
func (n *node) InfoFingerprint() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info.Fingerprint()
}

// ResetInfo drops fetched properties, keeping the discovery record.
func (n *node) ResetInfo() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.info = n.seed
	n.infoLoaded = false
}

// GetProperty returns name, fetching the node info once if needed. An
// absent property yields def; only a failed fetch returns an error.
func (n *node) GetProperty(ctx context.Context, name string, def query.Value) (query.Value, error) {
	if v, ok := n.lookup(name); ok {
		return v, nil
	}
	if !n.isInfoLoaded() {
		if err := n.Refresh(ctx); err != nil {
			return def, err
		}
	}
	if v, ok := n.lookup(name); ok {
		return v, nil
	}
	return def, nil
}

// Get returns name, fetching the node info once if needed. An absent
// property is an *UnknownPropertyError.
func (n *node) Get(ctx context.Context, name string) (query.Value, error) {
	if v, ok := n.lookup(name); ok {
		return v, nil
	}
	if !n.isInfoLoaded() {
		if err := n.Refresh(ctx); err != nil {
			return query.Value{}, err
		}
	}
	if v, ok := n.lookup(name); ok {
		return v, nil
	}
	return query.Value{}, &UnknownPropertyError{Kind: n.kind, Property: name}
}

// Set writes a single property through the kind's modify command.
func (n *node) Set(ctx context.Context, name string, value any) error {
	return n.Modify(ctx, query.P(name, value))
}

// Modify writes properties through the kind's modify command. The cache is
// not patched: it is marked stale and refetched on the next GetInfo with
// refresh, so only server confirmed values are ever presented.
func (n *node) Modify(ctx context.Context, props ...query.Param) error {
	if n.modify == nil {
		return &ReadOnlyNodeError{Kind: n.kind}
	}
	if err := n.modify(ctx, props); err != nil {
		return err
	}

	n.mu.Lock()
	n.infoLoaded = false
	n.mu.Unlock()
	return nil
}

// Children returns the ordered child nodes, loading them on first access.
func (n *node) Children(ctx context.Context) ([]Node, error) {
	n.mu.Lock()
	if n.loaded {
		children := slices.Clone(n.children)
		n.mu.Unlock()
		return children, nil
	}
	n.mu.Unlock()

	var children []Node
	if n.fetchChildren != nil {
		var err error
		children, err = n.fetchChildren(ctx)
		if err != nil {
			return nil, err
		}
	}
	if children == nil {
		children = []Node{}
	}

	n.mu.Lock()
	n.children = children
	n.loaded = true
	n.mu.Unlock()
	return slices.Clone(children), nil
}

// ChildrenLoaded reports whether the child collection is loaded.
func (n *node) ChildrenLoaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// Len returns the number of children, loading them if needed.
func (n *node) Len(ctx context.Context) (int, error) {
	children, err := n.Children(ctx)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}

// ResetChildren marks the child collection as not loaded.
func (n *node) ResetChildren() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = nil
	n.loaded = false
}

// Call runs op on the first node of the chain self, parent, grandparent...
// that declares it.
func (n *node) Call(ctx context.Context, op Operation, params ...query.Param) (*query.Reply, error) {
	for cur := n.self; cur != nil; cur = cur.Parent() {
		if fn, ok := cur.base().ops[op]; ok {
			return fn(ctx, params...)
		}
	}
	return nil, &UnsupportedOperationError{Kind: n.kind, Operation: op}
}

// Supports reports whether the node or an ancestor declares op.
func (n *node) Supports(op Operation) bool {
	for cur := n.self; cur != nil; cur = cur.Parent() {
		if _, ok := cur.base().ops[op]; ok {
			return true
		}
	}
	return false
}

// Operations returns the operations declared by the node itself, sorted.
func (n *node) Operations() []Operation {
	ops := make([]Operation, 0, len(n.ops))
	for op := range n.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// IconIsLocal reports whether the icon id stored in key is a built-in icon.
func (n *node) IconIsLocal(ctx context.Context, key string) (bool, error) {
	v, err := n.Get(ctx, key)
	if err != nil {
		return false, err
	}
	id := v.IntOr(0)
	return id > 0 && id < 1000, nil
}

// IconName returns the internal path of the icon stored in key.
func (n *node) IconName(ctx context.Context, key string) (string, error) {
	v, err := n.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return IconPath(v), nil
}

func (n *node) cached(name string) query.Value {
	v, _ := n.lookup(name)
	return v
}
