package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robottwo/redline/internal/completion"
	"github.com/robottwo/redline/internal/resp"
)

// pipeClient returns a Client wired to an in-memory connection plus the
// server end of the pipe.
func pipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	cliConn, srvConn := net.Pipe()
	t.Cleanup(func() {
		cliConn.Close()
		srvConn.Close()
	})

	return &Client{
		conn:   cliConn,
		w:      bufio.NewWriter(cliConn),
		dec:    resp.NewDecoder(bufio.NewReader(cliConn)),
		addr:   "testhost:6379",
		proto:  2,
		logger: zap.NewNop(),
	}, srvConn
}

// script answers one incoming command with each canned raw response, in
// order, and records the argument lists it saw.
type script struct {
	mu       sync.Mutex
	received [][]string
	done     chan struct{}
}

func serve(t *testing.T, conn net.Conn, responses ...string) *script {
	t.Helper()
	s := &script{done: make(chan struct{})}

	go func() {
		defer close(s.done)
		dec := resp.NewDecoder(bufio.NewReader(conn))
		for _, response := range responses {
			value, err := dec.ReadValue()
			if err != nil {
				return
			}
			args := make([]string, len(value.Elems))
			for i, e := range value.Elems {
				args[i] = e.Str
			}
			s.mu.Lock()
			s.received = append(s.received, args)
			s.mu.Unlock()

			if _, err := conn.Write([]byte(response)); err != nil {
				return
			}
		}
	}()
	return s
}

func (s *script) commands(t *testing.T) [][]string {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scripted server did not finish")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func bulk(s string) string {
	return fmt.Sprintf("$%d\r\n%s\r\n", len(s), s)
}

func TestClient_Execute(t *testing.T) {
	c, srv := pipeClient(t)
	s := serve(t, srv, "+OK\r\n")

	value, err := c.Execute(context.Background(), "SET", "user:1", "hello")
	require.NoError(t, err)
	assert.Equal(t, resp.SimpleString, value.Type)
	assert.Equal(t, "OK", value.Str)

	assert.Equal(t, [][]string{{"SET", "user:1", "hello"}}, s.commands(t))
}

func TestClient_ExecuteErrorReply(t *testing.T) {
	c, srv := pipeClient(t)
	serve(t, srv, "-ERR unknown command 'BOGUS'\r\n")

	value, err := c.Execute(context.Background(), "BOGUS")
	require.NoError(t, err, "server error replies are values, not transport errors")
	assert.True(t, value.IsError())
	assert.Contains(t, value.Str, "unknown command")
}

func TestClient_ExecuteSkipsPushMessages(t *testing.T) {
	c, srv := pipeClient(t)
	serve(t, srv, ">2\r\n"+bulk("message")+bulk("hi")+":42\r\n")

	value, err := c.Execute(context.Background(), "INCR", "counter")
	require.NoError(t, err)
	assert.Equal(t, resp.Integer, value.Type)
	assert.Equal(t, int64(42), value.Int)
}

func TestClient_HandshakeHello(t *testing.T) {
	c, srv := pipeClient(t)
	s := serve(t, srv, "%1\r\n"+bulk("version")+bulk("7.4.0"))

	require.NoError(t, c.handshake(context.Background(), ""))

	assert.Equal(t, 3, c.proto)
	require.NotNil(t, c.ServerVersion())
	assert.Equal(t, "7.4.0", c.ServerVersion().String())
	assert.Equal(t, [][]string{{"HELLO", "3"}}, s.commands(t))
}

func TestClient_HandshakeFallback(t *testing.T) {
	c, srv := pipeClient(t)
	info := "# Server\r\nredis_version:6.2.7\r\nos:Linux\r\n"
	s := serve(t, srv,
		"-ERR unknown command 'HELLO'\r\n",
		"+PONG\r\n",
		bulk(info),
	)

	require.NoError(t, c.handshake(context.Background(), ""))

	assert.Equal(t, 2, c.proto)
	require.NotNil(t, c.ServerVersion())
	assert.Equal(t, "6.2.7", c.ServerVersion().String())

	commands := s.commands(t)
	require.Len(t, commands, 3)
	assert.Equal(t, []string{"PING"}, commands[1])
	assert.Equal(t, []string{"INFO", "server"}, commands[2])
}

func TestClient_HandshakeFallbackAuth(t *testing.T) {
	c, srv := pipeClient(t)
	s := serve(t, srv,
		"-ERR unknown command 'HELLO'\r\n",
		"+OK\r\n",
		"+PONG\r\n",
		bulk("redis_version:5.0.0\r\n"),
	)

	require.NoError(t, c.handshake(context.Background(), "hunter2"))

	commands := s.commands(t)
	require.Len(t, commands, 4)
	assert.Equal(t, []string{"AUTH", "hunter2"}, commands[1])
}

func TestClient_FetchKeys(t *testing.T) {
	c, srv := pipeClient(t)
	s := serve(t, srv,
		"*2\r\n"+bulk("17")+"*2\r\n"+bulk("user:1")+bulk("user:2"),
		"*2\r\n"+bulk("0")+"*1\r\n"+bulk("session:9"),
	)

	keys, err := c.FetchKeys(context.Background(), "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "user:2", "session:9"}, keys)

	commands := s.commands(t)
	require.Len(t, commands, 2)
	assert.Equal(t, []string{"SCAN", "0", "MATCH", "*", "COUNT", "500"}, commands[0])
	assert.Equal(t, []string{"SCAN", "17", "MATCH", "*", "COUNT", "500"}, commands[1])
}

func commandEntry(name string, arity int) string {
	return fmt.Sprintf("*6\r\n%s:%d\r\n*1\r\n+readonly\r\n:1\r\n:1\r\n:1\r\n", bulk(name), arity)
}

func TestClient_FetchCommandSchemas_ArityOnly(t *testing.T) {
	c, srv := pipeClient(t)
	serve(t, srv, "*3\r\n"+
		commandEntry("get", 2)+
		commandEntry("set", -3)+
		commandEntry("mget", -2),
	)

	schemas, err := c.FetchCommandSchemas(context.Background())
	require.NoError(t, err)

	byName := make(map[string]*completion.CommandSchema, len(schemas))
	for _, s := range schemas {
		byName[s.Name] = s
	}
	require.Len(t, byName, 3)

	assert.Equal(t, 1, byName["GET"].MinArgs)
	assert.Equal(t, 1, byName["GET"].MaxArgs)

	assert.Equal(t, 2, byName["SET"].MinArgs)
	assert.Equal(t, completion.Unbounded, byName["SET"].MaxArgs)

	assert.Equal(t, 1, byName["MGET"].MinArgs)
	assert.Equal(t, completion.Unbounded, byName["MGET"].MaxArgs)
}

func TestClient_FetchCommandSchemas_WithDocs(t *testing.T) {
	c, srv := pipeClient(t)
	c.version = semver.MustParse("7.4.0")

	getDoc := "*4\r\n" +
		bulk("summary") + bulk("Get the value of a key") +
		bulk("arguments") + "*1\r\n" +
		"*4\r\n" + bulk("name") + bulk("key") + bulk("type") + bulk("key")

	configDoc := "*2\r\n" +
		bulk("subcommands") + "*2\r\n" +
		bulk("config|get") + "*2\r\n" + bulk("summary") + bulk("Read configuration parameters")

	s := serve(t, srv,
		"*1\r\n"+commandEntry("get", 2),
		"*4\r\n"+bulk("get")+getDoc+bulk("config")+configDoc,
	)

	schemas, err := c.FetchCommandSchemas(context.Background())
	require.NoError(t, err)

	byName := make(map[string]*completion.CommandSchema, len(schemas))
	for _, schema := range schemas {
		byName[schema.Name] = schema
	}

	get := byName["GET"]
	require.NotNil(t, get)
	assert.Equal(t, "Get the value of a key", get.Summary)
	assert.Equal(t, []completion.ArgRole{completion.RoleKey}, get.Roles)

	configGet := byName["CONFIG GET"]
	require.NotNil(t, configGet)
	assert.Equal(t, "Read configuration parameters", configGet.Summary)

	commands := s.commands(t)
	require.Len(t, commands, 2)
	assert.Equal(t, []string{"COMMAND"}, commands[0])
	assert.Equal(t, []string{"COMMAND", "DOCS"}, commands[1])
}

func TestClient_Monitor(t *testing.T) {
	c, srv := pipeClient(t)

	go func() {
		dec := resp.NewDecoder(bufio.NewReader(srv))
		// MONITOR ack plus two events.
		if _, err := dec.ReadValue(); err != nil {
			return
		}
		srv.Write([]byte("+OK\r\n"))
		srv.Write([]byte("+1700000000.000000 [0 127.0.0.1:50000] \"GET\" \"user:1\"\r\n"))
		srv.Write([]byte("+1700000001.000000 [0 127.0.0.1:50000] \"DEL\" \"user:1\"\r\n"))
		// RESET ack once the client leaves monitor mode.
		if _, err := dec.ReadValue(); err != nil {
			return
		}
		srv.Write([]byte("+RESET\r\n"))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var events []string
	err := c.Monitor(ctx, func(line string) {
		mu.Lock()
		events = append(events, line)
		if len(events) == 2 {
			cancel()
		}
		mu.Unlock()
	})

	assert.ErrorIs(t, err, context.Canceled)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Contains(t, events[0], "\"GET\"")
	assert.Contains(t, events[1], "\"DEL\"")
}

func TestClient_ExpiredContextLeavesConnectionUsable(t *testing.T) {
	c, srv := pipeClient(t)
	s := serve(t, srv, "+PONG\r\n")

	// A caller whose deadline passed while queued on the lock must not
	// touch the stream at all.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := c.Execute(ctx, "PING")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	value, err := c.Execute(context.Background(), "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", value.Str)

	assert.Equal(t, [][]string{{"PING"}}, s.commands(t))
}

func TestClient_ReconnectsAfterTransportError(t *testing.T) {
	c, srv := pipeClient(t)
	srv.Close()

	_, err := c.Execute(context.Background(), "PING")
	require.Error(t, err)

	cliConn, srvConn := net.Pipe()
	t.Cleanup(func() {
		cliConn.Close()
		srvConn.Close()
	})
	c.dial = func(context.Context) (net.Conn, error) {
		return cliConn, nil
	}
	s := serve(t, srvConn,
		"%1\r\n"+bulk("version")+bulk("7.4.0"),
		"+PONG\r\n",
	)

	// The next call redials and redoes the handshake transparently.
	value, err := c.Execute(context.Background(), "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", value.Str)
	assert.Equal(t, 3, c.proto)

	commands := s.commands(t)
	require.Len(t, commands, 2)
	assert.Equal(t, []string{"HELLO", "3"}, commands[0])
	assert.Equal(t, []string{"PING"}, commands[1])
}

func TestClient_MonitorUnresponsiveAck(t *testing.T) {
	c, srv := pipeClient(t)

	go func() {
		dec := resp.NewDecoder(bufio.NewReader(srv))
		// Swallow MONITOR without ever acking it; answer the RESET.
		if _, err := dec.ReadValue(); err != nil {
			return
		}
		if _, err := dec.ReadValue(); err != nil {
			return
		}
		srv.Write([]byte("+RESET\r\n"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.Monitor(ctx, func(string) {})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not return after its context expired")
	}
}
