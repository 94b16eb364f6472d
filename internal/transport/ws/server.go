package ws

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/world"
	"courtroom.ai/internal/transport/session"
)

// Server accepts browser clients. Each text message carries one or more
// #%-terminated frames, decoded exactly like the TCP byte stream.
type Server struct {
	world *world.World
	log   *log.Logger

	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.SetReadLimit(4 * protocol.MaxBuffer)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := session.NewConn(s.clientIP(r), session.DefaultQueue)
		sess, err := session.Open(ctx, s.world, conn)
		if err != nil {
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server stopping"), time.Now().Add(time.Second))
			return
		}
		defer sess.Close()

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			conn.WritePump(func(b []byte) error {
				_ = ws.SetWriteDeadline(time.Now().Add(session.WriteTimeout))
				return ws.WriteMessage(websocket.TextMessage, b)
			})
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = ws.Close()
		}()

		// Reader loop.
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				break
			}
			if err := sess.Feed(ctx, msg); err != nil {
				s.log.Printf("ws: client %d (%s): %v", sess.ID(), conn.RemoteIP(), err)
				break
			}
		}
		conn.Close()
		<-writerDone
	}
}

func (s *Server) clientIP(r *http.Request) string {
	if s.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
