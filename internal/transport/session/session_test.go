package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/tuning"
	"courtroom.ai/internal/sim/world"
)

func TestConnFullQueueCloses(t *testing.T) {
	c := NewConn("10.0.0.1", 2)
	c.Send([]byte("a"))
	c.Send([]byte("b"))
	select {
	case <-c.Closed():
		t.Fatalf("closed before the queue overflowed")
	default:
	}
	c.Send([]byte("c"))
	select {
	case <-c.Closed():
	default:
		t.Fatalf("full queue should close the connection")
	}
}

func TestWritePumpFlushesAfterClose(t *testing.T) {
	c := NewConn("10.0.0.1", 4)
	c.Send([]byte("KK#bye#%"))
	c.Close()
	c.Send([]byte("dropped"))

	var got []string
	c.WritePump(func(b []byte) error {
		got = append(got, string(b))
		return nil
	})
	if len(got) != 1 || got[0] != "KK#bye#%" {
		t.Fatalf("flushed=%v", got)
	}
}

func TestWritePumpStopsOnError(t *testing.T) {
	c := NewConn("10.0.0.1", 4)
	c.Send([]byte("x"))
	done := make(chan struct{})
	go func() {
		c.WritePump(func([]byte) error { return errors.New("broken pipe") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WritePump did not return")
	}
	select {
	case <-c.Closed():
	default:
		t.Fatalf("write error should close the connection")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	w, err := world.New(world.Config{
		Tuning:   tuning.Defaults(),
		Areas:    areas.Config{Areas: []areas.Spec{{Name: "Basement", Background: "gs4"}}},
		Catalogs: catalogs.New([]string{"Phoenix"}, nil, nil),
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go w.Run(ctx)
	defer func() {
		cancel()
		<-w.Done()
	}()

	conn := NewConn("127.0.0.1", DefaultQueue)
	s, err := Open(ctx, w, conn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Feed(ctx, []byte("HI#hdid#%")); err != nil {
		t.Fatalf("feed: %v", err)
	}

	want := map[string]bool{protocol.OutDecryptor: false, protocol.OutID: false}
	deadline := time.After(3 * time.Second)
	for !want[protocol.OutDecryptor] || !want[protocol.OutID] {
		select {
		case b := <-conn.out:
			cmd, _ := protocol.Split(string(b[:len(b)-len(protocol.Delimiter)]))
			if _, ok := want[cmd]; ok {
				want[cmd] = true
			}
		case <-deadline:
			t.Fatalf("frames seen=%v", want)
		}
	}

	if err := s.Feed(ctx, []byte("x#%")); !errors.Is(err, protocol.ErrShortFrame) {
		t.Fatalf("short frame err=%v", err)
	}
	s.Close()
	select {
	case <-conn.Closed():
	default:
		t.Fatalf("Close should close the connection")
	}
}
