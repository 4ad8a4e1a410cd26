package testutils

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Lines the server sends.
const (
	LineEnd  = "\n\r"
	Ident    = "TS3"
	Welcome  = "Welcome to the TeamSpeak 3 ServerQuery interface, type \"help\" for a list of commands."
	StatusOK = "error id=0 msg=ok"
)

// Handler returns the lines answering one command line. Returning nil sends
// nothing, leaving the client waiting.
type Handler func(line string) []string

// FakeServer is an in-process ServerQuery server driven by per-verb
// handlers.
type FakeServer struct {
	t  testing.TB
	ln net.Listener

	mu       sync.Mutex
	handlers map[string]Handler
	received []string
	conns    []net.Conn
	accepted int

	wg sync.WaitGroup
}

// NewFakeServer starts a server on a random local port. It is closed when
// the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &FakeServer{t: t, ln: ln, handlers: map[string]Handler{}}
	s.Handle("quit", StatusOK)
	s.Handle("login", StatusOK)
	s.Handle("logout", StatusOK)
	s.Handle("use", StatusOK)
	s.Handle("whoami", "virtualserver_status=online virtualserver_id=1 client_id=5 client_nickname=serveradmin", StatusOK)

	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listening address.
func (s *FakeServer) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *FakeServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns host:port.
func (s *FakeServer) Addr() string {
	return net.JoinHostPort(s.Host(), strconv.Itoa(s.Port()))
}

// Handle answers verb with fixed lines.
func (s *FakeServer) Handle(verb string, lines ...string) {
	s.HandleFunc(verb, func(string) []string { return lines })
}

// HandleFunc answers verb with h.
func (s *FakeServer) HandleFunc(verb string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[verb] = h
}

// Received returns the command lines received so far, across connections.
func (s *FakeServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// ReceivedVerbs returns the verbs of Received.
func (s *FakeServer) ReceivedVerbs() []string {
	lines := s.Received()
	verbs := make([]string, len(lines))
	for i, l := range lines {
		verbs[i], _, _ = strings.Cut(l, " ")
	}
	return verbs
}

// Accepted returns the number of accepted connections.
func (s *FakeServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Push writes lines to every open connection, e.g. event notifications.
func (s *FakeServer) Push(lines ...string) {
	s.mu.Lock()
	conns := append([]net.Conn(nil), s.conns...)
	s.mu.Unlock()

	for _, c := range conns {
		writeLines(c, lines)
	}
}

// DropConnections closes every open connection from the server side.
func (s *FakeServer) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Close stops the server and closes open connections.
func (s *FakeServer) Close() {
	s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *FakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *FakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if !writeLines(conn, []string{Ident, Welcome}) {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		verb, _, _ := strings.Cut(line, " ")

		s.mu.Lock()
		s.received = append(s.received, line)
		h, ok := s.handlers[verb]
		s.mu.Unlock()

		reply := []string{"error id=256 msg=command\\snot\\sfound"}
		if ok {
			reply = h(line)
		}
		if !writeLines(conn, reply) {
			return
		}
		if verb == "quit" {
			return
		}
	}
}

func writeLines(conn net.Conn, lines []string) bool {
	if len(lines) == 0 {
		return true
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(LineEnd)
	}
	_, err := conn.Write([]byte(b.String()))
	return err == nil
}
