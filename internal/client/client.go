// Package client implements the observer side of the game server's GRAPHIC
// protocol: connection lifecycle, a background receive loop that frames the
// byte stream into lines, an outbound command path, and a FIFO handoff queue
// drained by the consumer on its own cadence.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zappytools/zappyview/internal/wire"
)

// Status is the externally observable connection state. Transitions are
// driven only by the client itself.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrHandshake        = errors.New("handshake failed")
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultJoinTimeout    = time.Second
	readChunkSize         = 4096
)

// initialSync is the scripted request batch sent after registration so a
// fresh session converges on the server's current world state.
var initialSync = []string{
	wire.CmdMapSize,
	wire.CmdTeamNames,
	wire.CmdTimeUnit,
	wire.CmdMapContent,
}

type Options struct {
	// ConnectTimeout bounds the dial and the handshake read. Steady-state
	// receives have no deadline; closing the socket unblocks them.
	ConnectTimeout time.Duration
	// JoinTimeout bounds how long Disconnect waits for the receive loop.
	JoinTimeout time.Duration
	Logger      *slog.Logger
	// OnStatus, if set, is invoked synchronously on every status transition,
	// from whichever goroutine drives it.
	OnStatus func(Status)
}

type Client struct {
	host string
	port int

	connectTimeout time.Duration
	joinTimeout    time.Duration
	logger         *slog.Logger
	onStatus       func(Status)

	queue   eventQueue
	running atomic.Bool

	mu        sync.Mutex
	status    Status
	conn      net.Conn
	recvDone  chan struct{}
	sessionID string

	// writeMu keeps each command's bytes contiguous on the wire when sends
	// race from multiple goroutines.
	writeMu sync.Mutex
}

func New(host string, port int, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	joinTimeout := opts.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}
	return &Client{
		host:           host,
		port:           port,
		connectTimeout: connectTimeout,
		joinTimeout:    joinTimeout,
		logger:         logger,
		onStatus:       opts.OnStatus,
		status:         StatusDisconnected,
	}
}

func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID identifies the current (or most recent) connection attempt in
// log records.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect dials the server, performs the WELCOME/GRAPHIC handshake, requests
// the initial world snapshot, and starts the receive loop. On any failure the
// socket is torn down, status flips to Failed, and no goroutine is left
// behind.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	// Claim the slot under the guard's lock so a racing Connect cannot
	// also pass it and double-dial.
	c.status = StatusConnecting
	c.sessionID = uuid.NewString()
	cb := c.onStatus
	c.mu.Unlock()
	if cb != nil {
		cb(StatusConnecting)
	}

	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		c.setStatus(StatusFailed)
		return fmt.Errorf("connect %s: %w", c.Addr(), err)
	}

	reader := bufio.NewReader(conn)
	if err := c.handshake(conn, reader); err != nil {
		conn.Close() //nolint:errcheck
		c.setStatus(StatusFailed)
		return err
	}

	done := make(chan struct{})
	c.queue.reset()
	c.running.Store(true)
	c.mu.Lock()
	c.conn = conn
	c.recvDone = done
	// Connected is published in the same critical section as the
	// connection, and notified before the receive loop exists: its
	// teardown can only ever move the status forward to Disconnected.
	c.status = StatusConnected
	cb = c.onStatus
	c.mu.Unlock()
	if cb != nil {
		cb(StatusConnected)
	}

	go c.receiveLoop(reader, done)

	c.logger.Debug("connected", "session", c.SessionID(), "addr", c.Addr())
	return nil
}

func (c *Client) handshake(conn net.Conn, reader *bufio.Reader) error {
	if err := conn.SetReadDeadline(time.Now().Add(c.connectTimeout)); err != nil {
		return fmt.Errorf("set handshake deadline: %w", err)
	}
	greeting, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	if !strings.Contains(greeting, wire.HandshakeToken) {
		return fmt.Errorf("%w: unexpected greeting %q", ErrHandshake, strings.TrimSpace(greeting))
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("clear read deadline: %w", err)
	}

	// Register as a passive observer, then request the full session state.
	if err := writeLine(conn, wire.CmdGraphic); err != nil {
		return fmt.Errorf("register observer: %w", err)
	}
	for _, cmd := range initialSync {
		if err := writeLine(conn, cmd); err != nil {
			return fmt.Errorf("request %s: %w", cmd, err)
		}
	}
	return nil
}

// Disconnect tears the connection down. It is idempotent and safe to call
// concurrently with the receive loop's own error path; exactly one teardown
// executes and later calls are no-ops.
func (c *Client) Disconnect() {
	c.teardown(true)
}

// Send transmits one command line, appending the terminator if absent.
// It reports ErrNotConnected instead of writing on a dead connection; a
// transport failure triggers the same teardown as a receive failure.
func (c *Client) Send(command string) error {
	command = strings.TrimRight(command, "\r\n")
	if command == "" {
		return fmt.Errorf("empty command")
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.status == StatusConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	err := writeLine(conn, command)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn("send failed", "session", c.SessionID(), "command", command, "error", err)
		c.teardown(true)
		return fmt.Errorf("send %q: %w", command, err)
	}
	return nil
}

// RequestTimeUnit asks the server to change its time unit.
func (c *Client) RequestTimeUnit(freq int) error {
	return c.Send(wire.CmdSetTime + " " + strconv.Itoa(freq))
}

// Drain removes and returns every queued line in arrival order. It never
// blocks; an empty queue yields nil.
func (c *Client) Drain() []string {
	return c.queue.drain()
}

func (c *Client) receiveLoop(reader *bufio.Reader, done chan struct{}) {
	defer close(done)

	detector := newWinDetector()
	var frames wire.LineBuffer
	buf := make([]byte, readChunkSize)

	for c.running.Load() {
		n, err := reader.Read(buf)
		if n > 0 {
			for _, line := range frames.Feed(buf[:n]) {
				c.queue.push(line)
				if synthetic, ok := detector.preprocess(line); ok {
					// Keep the synthetic notice adjacent to its trigger.
					c.queue.push(synthetic)
				}
			}
		}
		if err != nil {
			if c.running.Load() {
				if errors.Is(err, io.EOF) {
					c.logger.Debug("server closed connection", "session", c.SessionID())
				} else {
					c.logger.Warn("receive failed", "session", c.SessionID(), "error", err)
				}
			}
			c.teardown(false)
			return
		}
	}
}

// teardown is the single shutdown path shared by Disconnect, the send error
// path, and the receive loop. wait is false when the receive loop itself is
// the caller; joining one's own goroutine would deadlock.
func (c *Client) teardown(wait bool) {
	c.mu.Lock()
	conn := c.conn
	done := c.recvDone
	c.conn = nil
	c.recvDone = nil
	alreadyDown := c.status == StatusDisconnected
	c.status = StatusDisconnected
	cb := c.onStatus
	c.mu.Unlock()

	// Flag first so no new sends start, then close to unblock the pending
	// receive.
	c.running.Store(false)
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Debug("close connection", "session", c.SessionID(), "error", err)
		}
	}
	if !alreadyDown && cb != nil {
		cb(StatusDisconnected)
	}

	if wait && done != nil {
		select {
		case <-done:
		case <-time.After(c.joinTimeout):
			c.logger.Warn("receive loop did not stop in time", "session", c.SessionID())
		}
	}
}

func (c *Client) setStatus(next Status) {
	c.mu.Lock()
	if c.status == next {
		c.mu.Unlock()
		return
	}
	c.status = next
	cb := c.onStatus
	c.mu.Unlock()
	if cb != nil {
		cb(next)
	}
}

func writeLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\n")
	return err
}
