package tcp

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"courtroom.ai/internal/sim/world"
	"courtroom.ai/internal/transport/session"
)

type Server struct {
	world *world.World
	log   *log.Logger

	wg sync.WaitGroup
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{world: w, log: logger}
}

// Serve accepts connections until ctx is done or ln fails. It waits for
// open connections to finish before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	defer s.wg.Wait()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, nc)
		}()
	}
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	defer nc.Close()

	conn := session.NewConn(remoteIP(nc.RemoteAddr()), session.DefaultQueue)
	sess, err := session.Open(ctx, s.world, conn)
	if err != nil {
		return
	}
	defer sess.Close()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.WritePump(func(b []byte) error {
			_ = nc.SetWriteDeadline(time.Now().Add(session.WriteTimeout))
			_, err := nc.Write(b)
			return err
		})
		// Unblocks the reader once the world or a failed write closed us.
		_ = nc.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-writerDone:
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			if ferr := sess.Feed(ctx, buf[:n]); ferr != nil {
				s.log.Printf("tcp: client %d (%s): %v", sess.ID(), conn.RemoteIP(), ferr)
				break
			}
		}
		if err != nil {
			break
		}
	}
	conn.Close()
	<-writerDone
}

func remoteIP(addr net.Addr) string {
	if ta, ok := addr.(*net.TCPAddr); ok {
		return ta.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
