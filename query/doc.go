// Package query implements the wire codec of the TeamSpeak 3 ServerQuery
// protocol.
//
// The package has no I/O state: it escapes and unescapes values, serializes
// commands and classifies and parses received lines. Connection handling
// lives in the parent package.
//
// # Wire Format
//
// A command is a single line:
//
//	<verb> <k>=<v> <k>=<v>|<k>=<v> <flag>*\n
//
// The server answers with zero or more data lines followed by a status line:
//
//	virtualserver_id=1 virtualserver_port=9987|virtualserver_id=2 virtualserver_port=9988
//	error id=0 msg=ok
//
// Unsolicited notifications may appear between reply lines:
//
//	notifycliententerview cfid=0 ctid=1 clid=5 client_nickname=guest
//
// # Escaping
//
// Values escape backslash, slash, space, pipe, semicolon and the control
// characters BEL, BS, FF, LF, CR, TAB and VT. Unescape is the exact inverse
// of Escape:
//
//	s := query.Escape("hello world|x") // hello\sworld\px
//	orig, err := query.Unescape(s)
//
// # Building commands
//
//	cmd := query.NewCommand("clientlist").WithFlags("-uid", "-away")
//	line := query.Encode(cmd) // clientlist -uid -away
//
//	cmd = query.NewCommand("sendtextmessage",
//		query.P("targetmode", 2),
//		query.P("target", 1),
//		query.P("msg", "hello world"),
//	)
//
// # Parsing
//
//	switch query.Classify(line) {
//	case query.LineStatus:
//		st, err := query.ParseStatus(line)
//	case query.LineEvent:
//		ev, err := query.ParseEvent(line)
//	default:
//		recs, err := query.ParseRecords(line)
//	}
//
// # Error Handling
//
//   - DecodeError: malformed wire data, CLOSE connection
//   - CommandError: non-zero status id, connection can be REUSED
//
// Both implement ShouldCloseConnection.
package query
