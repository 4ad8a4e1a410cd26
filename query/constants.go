package query

// Protocol delimiters and sentinels.
const (
	// Ident is the first line the server sends after accepting a connection.
	Ident = "TS3"

	// GreetingPrefix starts the welcome line that follows Ident.
	GreetingPrefix = "Welcome"

	// Newline terminates every command line sent by the client.
	// The server terminates its own lines with "\n\r".
	Newline = "\n"

	// StatusPrefix starts the terminator line of every reply.
	StatusPrefix = "error"

	// EventPrefix starts every unsolicited notification line.
	EventPrefix = "notify"

	// ListSeparator separates records in a data line and parameter groups in a command.
	ListSeparator = "|"

	// CellSeparator separates key=value pairs inside a record.
	CellSeparator = " "

	// PairSeparator separates a key from its value.
	PairSeparator = "="
)

// Status codes the client interprets itself.
const (
	StatusOK = 0x0000

	// StatusInvalidClientID is returned when a client id does not exist.
	StatusInvalidClientID = 0x0200

	// StatusInvalidChannelID is returned when a channel id does not exist.
	StatusInvalidChannelID = 0x0300

	// StatusInvalidServerID is returned when a virtual server id does not exist.
	StatusInvalidServerID = 0x0400

	// StatusDatabaseEmptyResult is returned by list commands with no results.
	StatusDatabaseEmptyResult = 0x0501
)
