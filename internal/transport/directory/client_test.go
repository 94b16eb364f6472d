package directory

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"courtroom.ai/internal/clock"
)

type refusingDialer struct {
	mu    sync.Mutex
	calls int
}

func (d *refusingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil, errors.New("connection refused")
}

func (d *refusingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestRetriesForeverAtFixedInterval(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	d := &refusingDialer{}
	c := New(Config{Addr: "master:27016"}, d, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	for i := 1; i <= 5; i++ {
		clk.WaitForTimers(1)
		if got := d.count(); got != i {
			t.Fatalf("attempt %d: dial count=%d", i, got)
		}
		if c.State() != Disconnected {
			t.Fatalf("state=%s", c.State())
		}
		clk.Advance(RetryInterval - time.Second)
		if clk.Pending() != 1 {
			t.Fatalf("retried before the interval elapsed")
		}
		clk.Advance(time.Second)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

type pipeDialer struct {
	conns chan net.Conn
}

func (d *pipeDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	select {
	case c := <-d.conns:
		return c, nil
	default:
		return nil, errors.New("connection refused")
	}
}

func TestRegisterPingAndReregister(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	server, client := net.Pipe()
	d := &pipeDialer{conns: make(chan net.Conn, 1)}
	d.conns <- client
	c := New(Config{Addr: "master:27016", Port: 27016, Name: "Court", Description: "A test server", Version: "1.0.0"}, d, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	_ = server.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(server)
	readFrame := func() string {
		t.Helper()
		s, err := r.ReadString('%')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return s
	}

	if got := readFrame(); got != "SCC#27016#Court#A test server#1.0.0#%" {
		t.Fatalf("registration=%q", got)
	}
	if _, err := server.Write([]byte("CHECK#%")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(); got != "PING#%" {
		t.Fatalf("CHECK answered with %q", got)
	}
	if c.State() != Registered {
		t.Fatalf("state=%s", c.State())
	}
	if _, err := server.Write([]byte("PONG#%NOSERV#%")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFrame(); got != "SCC#27016#Court#A test server#1.0.0#%" {
		t.Fatalf("re-registration=%q", got)
	}

	server.Close()
	clk.WaitForTimers(1)
	if c.State() != Disconnected {
		t.Fatalf("state after reset=%s", c.State())
	}
}
