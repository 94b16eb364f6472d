package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"courtroom.ai/internal/sim/world"
)

const Version = 1

// AreasSource is the slice of the world the observer reads.
type AreasSource interface {
	AreaSummaries(ctx context.Context) ([]world.AreaSummary, error)
	Stats() world.Stats
}

// AreasMsg is pushed to observers on every interval.
type AreasMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion int                 `json:"protocol_version"`
	At              int64               `json:"at"`
	Clients         int                 `json:"clients"`
	Players         int                 `json:"players"`
	Areas           []world.AreaSummary `json:"areas"`
}

type Server struct {
	src AreasSource
	log *log.Logger

	Interval time.Duration

	upgrader websocket.Upgrader
}

func NewServer(src AreasSource, logger *log.Logger) *Server {
	return &Server{
		src:      src,
		log:      logger,
		Interval: 2 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (s *Server) snapshot(ctx context.Context) ([]byte, error) {
	areas, err := s.src.AreaSummaries(ctx)
	if err != nil {
		return nil, err
	}
	st := s.src.Stats()
	return json.Marshal(AreasMsg{
		Type:            "AREAS",
		ProtocolVersion: Version,
		At:              time.Now().UnixMilli(),
		Clients:         st.Clients,
		Players:         st.Players,
		Areas:           areas,
	})
}

// AreasHandler serves one summary as JSON.
func (s *Server) AreasHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		b, err := s.snapshot(r.Context())
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write(b)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Reader loop only detects the peer going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		interval := s.Interval
		if interval <= 0 {
			interval = 2 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			b, err := s.snapshot(ctx)
			if err != nil {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
