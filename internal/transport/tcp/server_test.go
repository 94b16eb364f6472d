package tcp

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/tuning"
	"courtroom.ai/internal/sim/world"
)

func startServer(t *testing.T) net.Addr {
	t.Helper()
	w, err := world.New(world.Config{
		Tuning:   tuning.Defaults(),
		Areas:    areas.Config{Areas: []areas.Spec{{Name: "Basement", Background: "gs4"}}},
		Catalogs: catalogs.New([]string{"Phoenix", "Maya"}, nil, nil),
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	srv := NewServer(w, log.New(io.Discard, "", 0))
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-served:
		case <-time.After(5 * time.Second):
			t.Errorf("Serve did not return")
		}
		<-w.Done()
	})
	return ln.Addr()
}

type client struct {
	t  *testing.T
	nc net.Conn
	r  *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()
	nc, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = nc.Close() })
	return &client{t: t, nc: nc, r: bufio.NewReader(nc)}
}

// next reads one frame, without its terminator.
func (c *client) next() (string, error) {
	_ = c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	var sb strings.Builder
	for {
		s, err := c.r.ReadString('%')
		sb.WriteString(s)
		if err != nil {
			return "", err
		}
		if strings.HasSuffix(sb.String(), protocol.Delimiter) {
			return strings.TrimSuffix(sb.String(), protocol.Delimiter), nil
		}
	}
}

func (c *client) expect(cmd string) []string {
	c.t.Helper()
	for {
		f, err := c.next()
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", cmd, err)
		}
		got, args := protocol.Split(f)
		if got == cmd {
			return args
		}
	}
}

func TestHandshakeOverTCP(t *testing.T) {
	addr := startServer(t)
	c := dial(t, addr)

	if args := c.expect(protocol.OutDecryptor); len(args) != 1 || args[0] != "NOENCRYPT" {
		t.Fatalf("decryptor args=%v", args)
	}
	// Split across writes to exercise buffering.
	_, _ = c.nc.Write([]byte("HI#hd"))
	time.Sleep(20 * time.Millisecond)
	_, _ = c.nc.Write([]byte("id#%"))

	args := c.expect(protocol.OutID)
	if len(args) != 3 || args[1] != world.SoftwareName || args[2] != world.SoftwareVersion {
		t.Fatalf("ID args=%v", args)
	}
	if args := c.expect(protocol.OutPlayers); len(args) != 2 || args[0] != "0" {
		t.Fatalf("PN args=%v", args)
	}

	_, _ = c.nc.Write(protocol.Encode(protocol.CmdAskCounts))
	if args := c.expect(protocol.OutCounts); len(args) != 3 || args[0] != "2" {
		t.Fatalf("SI args=%v", args)
	}
}

func TestOversizedBufferCloses(t *testing.T) {
	addr := startServer(t)
	c := dial(t, addr)
	c.expect(protocol.OutDecryptor)

	junk := strings.Repeat("x", protocol.MaxBuffer+1)
	if _, err := c.nc.Write([]byte(junk)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		if _, err := c.next(); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				t.Fatalf("connection stayed open after overflow")
			}
			return
		}
	}
}

func TestRemoteIP(t *testing.T) {
	if got := remoteIP(&net.TCPAddr{IP: net.ParseIP("10.1.2.3"), Port: 9}); got != "10.1.2.3" {
		t.Fatalf("tcp addr=%q", got)
	}
	if got := remoteIP(fakeAddr("192.0.2.7:80")); got != "192.0.2.7" {
		t.Fatalf("string addr=%q", got)
	}
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }
