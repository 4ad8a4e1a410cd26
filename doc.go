// Package teamspeak is a client for the TeamSpeak 3 ServerQuery interface.
//
// A Conn drives one TCP connection: it sends a command, reads the reply
// lines up to the status line and dispatches the notifications it sees on
// the way. Commands on one Conn are serialized.
//
//	conn, err := teamspeak.Dial(ctx, teamspeak.DefaultConfig("127.0.0.1", teamspeak.DefaultQueryPort))
//	if err != nil {
//		return err
//	}
//	defer conn.Quit(ctx)
//
//	if err := conn.Login(ctx, "serveradmin", password); err != nil {
//		return err
//	}
//	reply, err := conn.ExecuteOn(ctx, 1, query.NewCommand("clientlist").WithFlags("-uid"))
//
// # Node tree
//
// NewHost returns the root of a lazily loaded tree mirroring the instance:
// Host, then virtual Servers, then Channels, then Clients. Nodes cache their
// properties and children and refresh them on demand.
//
//	host := teamspeak.NewHost(conn)
//	server, err := host.ServerByPort(ctx, 9987)
//	clients, err := server.ClientList(ctx, teamspeak.Rules{"client_type": 0})
//
// Property access comes in two flavors: Get fails with an
// *UnknownPropertyError when the property doesn't exist, GetProperty
// returns the supplied default. Writes go through the kind's edit command
// and mark the cache stale instead of patching it.
//
// Node.Call runs a named Operation on the node or its nearest ancestor
// declaring it, so a Client can run host level commands like "version".
//
// # Concurrency
//
// A Conn runs one command at a time. A Pool hands out separate logged-in
// connections to concurrent callers and keeps idle ones alive.
//
// # Error Handling
//
// All errors implement ShouldCloseConnection:
//   - *query.CommandError: the server rejected the command, connection REUSED
//   - *query.DecodeError, *ReadTimeoutError, *WriteError, ErrConnectionClosed: connection CLOSED
//   - *UnknownPropertyError, *ReadOnlyNodeError, *UnsupportedOperationError: caller errors
package teamspeak
