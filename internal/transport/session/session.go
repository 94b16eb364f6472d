// Package session binds one transport connection to the world: it queues
// outbound frames, decodes inbound bytes and forwards frames to the world
// loop.
package session

import (
	"context"
	"sync"
	"time"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/world"
)

const (
	DefaultQueue = 256
	WriteTimeout = 5 * time.Second
)

// Conn implements world.Conn over a bounded queue. The world never blocks on
// a slow peer: a full queue closes the connection.
type Conn struct {
	ip     string
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

var _ world.Conn = (*Conn)(nil)

func NewConn(ip string, queue int) *Conn {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Conn{ip: ip, out: make(chan []byte, queue), closed: make(chan struct{})}
}

func (c *Conn) RemoteIP() string { return c.ip }

func (c *Conn) Send(frame []byte) {
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.out <- frame:
	default:
		c.Close()
	}
}

func (c *Conn) Close() { c.once.Do(func() { close(c.closed) }) }

// Closed is closed once either side has closed the connection.
func (c *Conn) Closed() <-chan struct{} { return c.closed }

// WritePump writes queued frames with write until the connection closes or
// a write fails. Frames queued before the close are still flushed, so a
// kick reason reaches the peer.
func (c *Conn) WritePump(write func([]byte) error) {
	for {
		select {
		case b := <-c.out:
			if err := write(b); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			for {
				select {
				case b := <-c.out:
					if err := write(b); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// Session is a joined client.
type Session struct {
	w    *world.World
	conn *Conn
	dec  *protocol.Decoder
	id   int
}

// Open registers conn with the world.
func Open(ctx context.Context, w *world.World, conn *Conn) (*Session, error) {
	resp := make(chan world.JoinResponse, 1)
	select {
	case w.Join() <- world.JoinRequest{Conn: conn, Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.Done():
		return nil, world.ErrStopped
	}
	select {
	case r := <-resp:
		return &Session{w: w, conn: conn, dec: protocol.NewDecoder(), id: r.ClientID}, nil
	case <-w.Done():
		return nil, world.ErrStopped
	}
}

func (s *Session) ID() int { return s.id }

// Feed decodes chunk and forwards complete frames in order. A decoder
// error is returned after the frames preceding it have been forwarded; the
// caller must then close the connection.
func (s *Session) Feed(ctx context.Context, chunk []byte) error {
	frames, derr := s.dec.Feed(chunk)
	for _, f := range frames {
		select {
		case s.w.Inbox() <- world.Inbound{ClientID: s.id, Frame: f}:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.w.Done():
			return world.ErrStopped
		case <-s.conn.Closed():
			return nil
		}
	}
	return derr
}

// Close closes the connection and removes the client from the world.
func (s *Session) Close() {
	s.conn.Close()
	select {
	case s.w.Leave() <- s.id:
	case <-s.w.Done():
	}
}
