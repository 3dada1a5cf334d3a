// Package protocol implements the coordination wire protocol: one request
// per connection, zero-byte-terminated frames, a fixed command vocabulary,
// and a trailing 3-byte client acknowledgment.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Request vocabulary. Requests are matched byte-for-byte.
const (
	RequestGetAnimation  = "GET_ANIMATION"
	RequestLockAnimation = "LOCK_ANIMATION"
)

// Response literals.
const (
	ResponseLocked  = "LOCKED"
	ResponseUnknown = "UNKNOWN_REQUEST"
)

// Ack is the fixed acknowledgment the client sends after reading the
// response. The server abandons the connection if it does not arrive.
const Ack = "ACK"

// frameLimit bounds a single frame; the state snapshot is small, anything
// bigger is a misbehaving peer.
const frameLimit = 64 * 1024

var (
	// ErrFrameTooLarge reports a frame that exceeded the bound before its
	// zero terminator arrived.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	// ErrBadAck reports a client acknowledgment that was not the ACK literal.
	ErrBadAck = errors.New("bad acknowledgment")
)

// ReadFrame reads bytes until the zero terminator, honoring the deadline
// already set on the connection. The size bound is enforced as bytes
// arrive, so an oversized frame fails before it is buffered whole.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	frame := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return frame, nil
		}
		if len(frame) >= frameLimit {
			return nil, ErrFrameTooLarge
		}
		frame = append(frame, b)
	}
}

// WriteFrame writes the payload followed by the zero terminator.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, 0)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readAck reads and verifies the fixed-length acknowledgment.
func readAck(conn net.Conn, timeout time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	buf := make([]byte, len(Ack))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	if string(buf) != Ack {
		return fmt.Errorf("%w: %q", ErrBadAck, buf)
	}
	return nil
}
