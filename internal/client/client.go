// Package client maintains the connection to the server and speaks RESP
// over it. A single connection serves the interactive prompt and the
// background cache refreshers; Execute serializes access so replies are
// matched to their requests.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/robottwo/redline/internal/resp"
)

// Options configures a connection attempt.
type Options struct {
	Host     string
	Port     int
	Password string

	// Timeout bounds the dial and the handshake. Zero means 5 seconds.
	Timeout time.Duration
}

func (o *Options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Client is a single serialized connection to the server.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
	dec  *resp.Decoder

	// broken marks the connection as unusable after a transport failure;
	// the next call redials instead of reusing the poisoned stream.
	broken bool
	dial   func(ctx context.Context) (net.Conn, error)

	opts    Options
	addr    string
	proto   int
	version *semver.Version
	logger  *zap.Logger
}

// Connect dials the server and negotiates the protocol. It tries HELLO 3
// first and falls back to AUTH plus PING against servers that predate
// RESP3. The server version is taken from the HELLO reply when available,
// otherwise from INFO.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dial := func(ctx context.Context) (net.Conn, error) {
		dialer := net.Dialer{Timeout: timeout}
		return dialer.DialContext(ctx, "tcp", opts.addr())
	}

	conn, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.addr(), err)
	}

	c := &Client{
		conn:   conn,
		w:      bufio.NewWriter(conn),
		dec:    resp.NewDecoder(bufio.NewReader(conn)),
		dial:   dial,
		opts:   opts,
		addr:   opts.addr(),
		proto:  2,
		logger: logger,
	}

	if err := c.handshake(ctx, opts.Password); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("connected",
		zap.String("addr", c.addr),
		zap.Int("proto", c.proto),
		zap.String("version", c.versionString()))
	return c, nil
}

func (c *Client) handshake(ctx context.Context, password string) error {
	helloArgs := []string{"HELLO", "3"}
	if password != "" {
		helloArgs = append(helloArgs, "AUTH", "default", password)
	}

	reply, err := c.exec(ctx, helloArgs...)
	if err != nil {
		return err
	}

	if !reply.IsError() {
		c.proto = 3
		c.readHelloVersion(reply)
		return nil
	}

	// Old server: HELLO is unknown. Authenticate and ping the RESP2 way.
	if password != "" {
		authReply, err := c.exec(ctx, "AUTH", password)
		if err != nil {
			return err
		}
		if authReply.IsError() {
			return fmt.Errorf("authentication failed: %s", authReply.Str)
		}
	}

	pong, err := c.exec(ctx, "PING")
	if err != nil {
		return err
	}
	if pong.IsError() {
		return fmt.Errorf("handshake failed: %s", pong.Str)
	}

	c.version = c.fetchInfoVersion(ctx)
	return nil
}

// readHelloVersion pulls the server version out of the HELLO reply map.
func (c *Client) readHelloVersion(reply resp.Value) {
	for i := 0; i+1 < len(reply.Elems); i += 2 {
		if reply.Elems[i].Str == "version" {
			if v, err := semver.NewVersion(reply.Elems[i+1].Str); err == nil {
				c.version = v
			}
			return
		}
	}
}

func (c *Client) fetchInfoVersion(ctx context.Context) *semver.Version {
	reply, err := c.exec(ctx, "INFO", "server")
	if err != nil || reply.IsError() {
		return nil
	}
	for _, line := range strings.Split(reply.Str, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "redis_version:"); ok {
			if v, err := semver.NewVersion(rest); err == nil {
				return v
			}
		}
	}
	return nil
}

// Addr returns the host:port this client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

// ServerVersion returns the negotiated server version, or nil when it
// could not be determined.
func (c *Client) ServerVersion() *semver.Version {
	return c.version
}

func (c *Client) versionString() string {
	if c.version == nil {
		return "unknown"
	}
	return c.version.String()
}

// Execute sends one command and returns its reply. Error replies from the
// server come back as a Value with IsError set, not as a Go error; the err
// return is reserved for transport failures. After a transport failure the
// connection is closed and the next call redials, so one timed-out caller
// cannot poison the connection for everyone queued behind it.
func (c *Client) Execute(ctx context.Context, args ...string) (resp.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exec(ctx, args...)
}

// exec is Execute with the lock already held.
func (c *Client) exec(ctx context.Context, args ...string) (resp.Value, error) {
	// A context that expired while waiting on the lock must not touch the
	// stream at all: writing under a past deadline leaves a sticky error
	// in the buffered writer and can desynchronize request and reply.
	if err := ctx.Err(); err != nil {
		return resp.Value{}, err
	}

	if c.broken {
		if err := c.reconnect(ctx); err != nil {
			return resp.Value{}, err
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := c.encodeAndFlush(args...); err != nil {
		c.markBroken(err)
		return resp.Value{}, err
	}

	for {
		value, err := c.dec.ReadValue()
		if err != nil {
			c.markBroken(err)
			return resp.Value{}, err
		}
		// Out-of-band push messages can arrive interleaved on RESP3.
		if value.Type == resp.Push {
			c.logger.Debug("ignoring push message", zap.Int("elems", len(value.Elems)))
			continue
		}
		return value, nil
	}
}

// markBroken closes the connection after a transport failure so the next
// call redials. bufio keeps write errors sticky and a mid-reply timeout
// leaves the stream desynchronized; neither is recoverable in place.
func (c *Client) markBroken(err error) {
	if c.broken {
		return
	}
	c.broken = true
	_ = c.conn.Close()
	c.logger.Warn("connection broken", zap.String("addr", c.addr), zap.Error(err))
}

// reconnect redials and redoes the handshake with the lock already held.
func (c *Client) reconnect(ctx context.Context) error {
	if c.dial == nil {
		return fmt.Errorf("connection to %s is broken", c.addr)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("reconnecting to %s: %w", c.addr, err)
	}

	c.conn = conn
	c.w = bufio.NewWriter(conn)
	c.dec = resp.NewDecoder(bufio.NewReader(conn))
	c.proto = 2
	c.broken = false

	if err := c.handshake(ctx, c.opts.Password); err != nil {
		c.markBroken(err)
		return fmt.Errorf("reconnecting to %s: %w", c.addr, err)
	}

	c.logger.Info("reconnected", zap.String("addr", c.addr))
	return nil
}

func (c *Client) encodeAndFlush(args ...string) error {
	if err := resp.EncodeCommand(c.w, args...); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close terminates the connection. A QUIT is attempted on a best-effort
// basis so the server drops the session cleanly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.broken {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, _ = c.exec(ctx, "QUIT")
		cancel()
	}
	return c.conn.Close()
}
