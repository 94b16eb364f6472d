// Package directory keeps the server registered with the public master
// server so players can find it. It retries forever and never affects
// client-facing service.
package directory

import (
	"context"
	"io"
	"log"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"courtroom.ai/internal/clock"
	"courtroom.ai/internal/protocol"
)

const RetryInterval = 30 * time.Second

type State int32

const (
	Disconnected State = iota
	Connecting
	Registered
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Registered:
		return "registered"
	default:
		return "disconnected"
	}
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type Config struct {
	Addr        string // host:port of the master server
	Port        int    // public port advertised for this server
	Name        string
	Description string
	Version     string
}

type Client struct {
	cfg    Config
	dialer Dialer
	clk    clock.Clock
	log    *log.Logger

	state    atomic.Int32
	attempts atomic.Int64
}

func New(cfg Config, d Dialer, clk clock.Clock, logger *log.Logger) *Client {
	if d == nil {
		d = &net.Dialer{Timeout: 10 * time.Second}
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{cfg: cfg, dialer: d, clk: clk, log: logger}
}

func (c *Client) State() State    { return State(c.state.Load()) }
func (c *Client) Attempts() int64 { return c.attempts.Load() }

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

// Run connects, registers and serves the master connection, waiting
// RetryInterval after every failure or disconnect. It returns only when
// ctx is done.
func (c *Client) Run(ctx context.Context) {
	for {
		c.setState(Connecting)
		c.attempts.Add(1)
		conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
		if err == nil {
			c.log.Printf("directory: connected to %s", c.cfg.Addr)
			err = c.serve(ctx, conn)
		}
		c.setState(Disconnected)
		if ctx.Err() != nil {
			return
		}
		c.log.Printf("directory: %v; retrying in %s", err, RetryInterval)
		select {
		case <-ctx.Done():
			return
		case <-c.clk.After(RetryInterval):
		}
	}
}

func (c *Client) registration() []byte {
	return protocol.Encode(protocol.DirRegister,
		strconv.Itoa(c.cfg.Port), c.cfg.Name, c.cfg.Description, c.cfg.Version)
}

func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	if _, err := conn.Write(c.registration()); err != nil {
		return err
	}
	c.setState(Registered)

	dec := protocol.NewDecoder()
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, derr := dec.Feed(buf[:n])
			for _, f := range frames {
				if werr := c.handle(conn, f); werr != nil {
					return werr
				}
			}
			if derr != nil {
				return derr
			}
		}
		if err != nil {
			return err
		}
	}
}

func (c *Client) handle(conn net.Conn, frame string) error {
	cmd, _ := protocol.Split(frame)
	switch cmd {
	case protocol.DirCheck:
		_, err := conn.Write(protocol.Encode(protocol.DirPing))
		return err
	case protocol.DirNoServer:
		_, err := conn.Write(c.registration())
		return err
	case protocol.DirPong:
	default:
		c.log.Printf("directory: %s", frame)
	}
	return nil
}
