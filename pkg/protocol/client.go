package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// AddrResolver yields the coordinator address for each call. A static
// address is the common case; discovery-backed resolvers plug in here.
type AddrResolver interface {
	CoordinatorAddr() (string, error)
}

// StaticAddr is an AddrResolver for a fixed coordinator address.
type StaticAddr string

func (a StaticAddr) CoordinatorAddr() (string, error) {
	if a == "" {
		return "", fmt.Errorf("no coordinator address configured")
	}
	return string(a), nil
}

// Client performs single-shot request/response exchanges against the
// coordinator: dial, request, response, ack, close.
type Client struct {
	resolver       AddrResolver
	requestTimeout time.Duration
	log            *zap.SugaredLogger
}

// NewClient builds a client. requestTimeout bounds the dial and the
// response read of each exchange.
func NewClient(resolver AddrResolver, requestTimeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		resolver:       resolver,
		requestTimeout: requestTimeout,
		log:            log,
	}
}

// QueryState asks the coordinator for its full state map.
func (c *Client) QueryState(ctx context.Context) (map[string]interface{}, error) {
	payload, err := c.exchange(ctx, RequestGetAnimation)
	if err != nil {
		return nil, err
	}
	var snapshot map[string]interface{}
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode state snapshot: %w", err)
	}
	return snapshot, nil
}

// SendLock delivers a lock request and verifies the LOCKED acknowledgment.
func (c *Client) SendLock(ctx context.Context) error {
	payload, err := c.exchange(ctx, RequestLockAnimation)
	if err != nil {
		return err
	}
	if string(payload) != ResponseLocked {
		return fmt.Errorf("unexpected lock response %q", payload)
	}
	return nil
}

// exchange runs one full protocol round trip.
func (c *Client) exchange(ctx context.Context, request string) ([]byte, error) {
	addr, err := c.resolver.CoordinatorAddr()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: c.requestTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := WriteFrame(conn, []byte(request)); err != nil {
		return nil, err
	}

	payload, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if _, err := conn.Write([]byte(Ack)); err != nil {
		// The response is already in hand; a lost ack only costs the
		// server its clean close.
		c.log.Debugw("ack write failed", "error", err)
	}
	return payload, nil
}
