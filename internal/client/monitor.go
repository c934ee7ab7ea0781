package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/robottwo/redline/internal/resp"
)

// resetTimeout bounds leaving monitor mode. A server that stops answering
// within it gets the connection closed and redialed instead of wedging the
// client with the lock held.
const resetTimeout = 2 * time.Second

// Monitor puts the connection into MONITOR mode and streams every command
// the server processes to the callback until ctx is cancelled. The
// connection cannot serve other commands meanwhile, so the whole call runs
// under the client lock. On return the connection has left MONITOR mode
// via RESET.
func (c *Client) Monitor(ctx context.Context, emit func(line string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.broken {
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}

	if err := c.encodeAndFlush("MONITOR"); err != nil {
		c.markBroken(err)
		return err
	}

	// The ack and the event stream share the polling read, so an
	// unresponsive server cannot wedge us at either stage.
	acked := false
	for ctx.Err() == nil {
		value, err := c.readPolling(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			c.markBroken(err)
			return err
		}
		if !acked {
			if value.IsError() {
				return fmt.Errorf("MONITOR: %s", value.Str)
			}
			acked = true
			continue
		}
		emit(value.Text())
	}

	// RESET returns the connection to a normal request/reply state. Any
	// monitor events still in flight are drained until its ack arrives.
	deadline := time.Now().Add(resetTimeout)
	_ = c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encodeAndFlush("RESET"); err != nil {
		c.markBroken(err)
		return fmt.Errorf("leaving monitor mode: %w", err)
	}
	for {
		value, err := c.dec.ReadValue()
		if err != nil {
			c.markBroken(err)
			return fmt.Errorf("leaving monitor mode: %w", err)
		}
		if value.IsError() {
			return fmt.Errorf("leaving monitor mode: %s", value.Str)
		}
		if value.Str == "RESET" || value.Str == "OK" {
			break
		}
	}
	return ctx.Err()
}

// readPolling reads one value under short deadlines so cancellation is
// noticed between reads.
func (c *Client) readPolling(ctx context.Context) (resp.Value, error) {
	defer c.conn.SetReadDeadline(time.Time{})
	for {
		if err := ctx.Err(); err != nil {
			return resp.Value{}, err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		value, err := c.dec.ReadValue()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return resp.Value{}, err
		}
		return value, nil
	}
}
