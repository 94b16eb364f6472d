package world

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"courtroom.ai/internal/clock"
	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/tuning"
)

type fakeConn struct {
	ip string

	mu     sync.Mutex
	frames []string
	closed bool
}

func (c *fakeConn) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(frame))
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) RemoteIP() string { return c.ip }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// take returns and clears everything sent so far.
func (c *fakeConn) take() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.frames
	c.frames = nil
	return out
}

func (c *fakeConn) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

// withCmd filters frames by command token and returns their arguments.
func withCmd(frames []string, cmd string) [][]string {
	var out [][]string
	for _, f := range frames {
		c, args := protocol.Split(strings.TrimSuffix(f, protocol.Delimiter))
		if c == cmd {
			out = append(out, args)
		}
	}
	return out
}

func hasFrame(frames []string, want string) bool {
	for _, f := range frames {
		if f == want {
			return true
		}
	}
	return false
}

type memBans struct {
	mu     sync.Mutex
	banned map[string]string
}

func newMemBans(ips ...string) *memBans {
	b := &memBans{banned: map[string]string{}}
	for _, ip := range ips {
		b.banned[ip] = "test"
	}
	return b
}

func (b *memBans) IsBanned(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.banned[ip]
	return ok
}

func (b *memBans) Ban(ip, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banned[ip] = reason
	return nil
}

type testWorld struct {
	t   *testing.T
	w   *World
	clk *clock.Fake
}

var testChars = []string{"Phoenix", "Edgeworth", "Maya", "Franziska"}

func testConfig() Config {
	tun := tuning.Defaults()
	tun.ModPass = "objection"
	tun.MOTD = "Order in the court."
	return Config{
		Tuning: tun,
		Areas: areas.Config{Areas: []areas.Spec{
			{Name: "Basement", Background: "gs4"},
			{Name: "Courtroom 1", Background: "gs4", Casing: true},
		}},
		Catalogs: catalogs.New(testChars, []catalogs.MusicCategory{{
			Category: "==Trial==",
			Songs: []catalogs.Song{
				{Name: "trial.opus", Length: 60},
				{Name: "lobby.opus"},
			},
		}}, []string{"gs4", "aj"}),
		Seed: 1,
	}
}

func startWorld(t *testing.T, mutate func(*Config)) *testWorld {
	t.Helper()
	cfg := testConfig()
	clk := clock.NewFake(time.Unix(1700000000, 0))
	cfg.Clock = clk
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})
	return &testWorld{t: t, w: w, clk: clk}
}

// run executes fn on the world goroutine. It doubles as a barrier: any
// event the loop already received has been handled when run returns.
func (tw *testWorld) run(fn func()) {
	tw.t.Helper()
	if err := tw.w.do(context.Background(), fn); err != nil {
		tw.t.Fatalf("do: %v", err)
	}
}

func (tw *testWorld) connect(ip string) (*fakeConn, int) {
	tw.t.Helper()
	conn := &fakeConn{ip: ip}
	var id int
	tw.run(func() { id = tw.w.connect(conn).ID })
	return conn, id
}

func (tw *testWorld) send(id int, frame string) {
	tw.t.Helper()
	tw.run(func() { tw.w.handleFrame(id, frame) })
}

func (tw *testWorld) client(id int) *Client {
	tw.t.Helper()
	var c *Client
	tw.run(func() { c, _ = tw.w.clients.Get(id) })
	return c
}

// join performs the full handshake and selects charID. Output produced
// so far is discarded.
func (tw *testWorld) join(ip string, charID int) (*fakeConn, int) {
	tw.t.Helper()
	conn, id := tw.connect(ip)
	tw.send(id, "HI#hdid-"+ip)
	tw.send(id, "ID#AOClassic#2.9")
	tw.send(id, "CC#"+strconv.Itoa(id)+"#"+strconv.Itoa(charID)+"#hdid-"+ip)
	conn.take()
	return conn, id
}

func TestHandshake(t *testing.T) {
	tw := startWorld(t, nil)
	conn, id := tw.connect("10.0.0.1")

	if got := conn.take(); !hasFrame(got, "decryptor#NOENCRYPT#%") {
		t.Fatalf("on connect: %v", got)
	}
	tw.send(id, "HI#abc")
	got := conn.take()
	if !hasFrame(got, "ID#0#courtroom#1.0.0#%") || !hasFrame(got, "PN#0#100#%") {
		t.Fatalf("HI reply: %v", got)
	}

	tw.send(id, "ID#AOClassic#2.9")
	if fl := withCmd(conn.take(), protocol.OutFeatures); len(fl) != 1 || len(fl[0]) != len(featureList) {
		t.Fatalf("FL: %v", fl)
	}

	tw.send(id, "askchaa")
	if !hasFrame(conn.take(), "SI#4#0#5#%") {
		t.Fatalf("SI counts wrong")
	}
	tw.send(id, protocol.LegacyAskChars)
	if !hasFrame(conn.take(), "SI#4#0#5#%") {
		t.Fatalf("legacy literal should answer like askchaa")
	}
	tw.send(id, "RC")
	if !hasFrame(conn.take(), "SC#Phoenix#Edgeworth#Maya#Franziska#%") {
		t.Fatalf("SC wrong")
	}
	tw.send(id, "RM")
	if !hasFrame(conn.take(), "SM#Basement#Courtroom 1#==Trial==#trial.opus#lobby.opus#%") {
		t.Fatalf("SM wrong")
	}
	tw.send(id, "RD")
	got = conn.take()
	for _, want := range []string{"CharsCheck#0#0#0#0#%", "HP#1#10#%", "HP#2#10#%", "BN#gs4#%", "MM#1#%", "LE#%", "DONE#%", "ARUP#0#1#0#%"} {
		if !hasFrame(got, want) {
			t.Fatalf("RD reply missing %q in %v", want, got)
		}
	}

	tw.send(id, "CC#0#2#abc")
	if !hasFrame(conn.take(), "PV#0#CID#2#%") {
		t.Fatalf("PV missing")
	}
	if s := tw.w.Stats(); s.Clients != 1 || s.Players != 1 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestIdentifyRejectCloses(t *testing.T) {
	tw := startWorld(t, nil)
	conn, id := tw.connect("10.0.0.1")
	tw.send(id, "ID#AOClassic")
	if !conn.isClosed() {
		t.Fatalf("malformed ID should close the connection")
	}
	if tw.w.Stats().Clients != 0 {
		t.Fatalf("client not removed")
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	tw := startWorld(t, nil)
	conn, id := tw.connect("10.0.0.1")
	conn.take()
	for _, f := range []string{"XX#1", "HP#1#5", "CC#0#x#abc", "CT#name#hi"} {
		tw.send(id, f)
	}
	if got := conn.take(); len(got) != 0 {
		t.Fatalf("expected silent drops, got %v", got)
	}
	if conn.isClosed() {
		t.Fatalf("drops must not close")
	}
}

func TestBannedIPDisconnected(t *testing.T) {
	bans := newMemBans("10.0.0.9")
	tw := startWorld(t, func(c *Config) { c.Bans = bans })
	conn, id := tw.connect("10.0.0.9")
	tw.send(id, "HI#abc")
	if !conn.isClosed() {
		t.Fatalf("banned client should be disconnected")
	}
	if withCmd(conn.take(), protocol.OutID) != nil {
		t.Fatalf("banned client should not get ID")
	}
}

func TestServerFull(t *testing.T) {
	tw := startWorld(t, func(c *Config) { c.Tuning.PlayerLimit = 1 })
	tw.join("10.0.0.1", 0)
	conn, id := tw.connect("10.0.0.2")
	tw.send(id, "HI#abc")
	if !hasFrame(conn.take(), "CT#$H#The server is full.#%") || !conn.isClosed() {
		t.Fatalf("second player should be turned away")
	}
}

func TestCharacterSelect(t *testing.T) {
	tw := startWorld(t, nil)
	_, a := tw.join("10.0.0.1", 1)
	conn, b := tw.connect("10.0.0.2")
	conn.take()

	tw.send(b, "CC#1#1#x")
	if got := conn.take(); withCmd(got, protocol.OutCharPicked) != nil {
		t.Fatalf("taken character granted: %v", got)
	}
	tw.send(b, "CC#1#9#x")
	if tw.client(b).CharID != -1 {
		t.Fatalf("invalid character granted")
	}
	tw.send(b, "CC#1#3#x")
	if tw.client(b).CharID != 3 || tw.client(a).CharID != 1 {
		t.Fatalf("chars a=%d b=%d", tw.client(a).CharID, tw.client(b).CharID)
	}
}

func TestKeepaliveTimeout(t *testing.T) {
	tw := startWorld(t, nil)
	conn, id := tw.connect("10.0.0.1")

	tw.clk.Advance(200 * time.Second)
	tw.send(id, "CH#0")
	if !hasFrame(conn.take(), "CHECK#%") {
		t.Fatalf("CH should answer CHECK")
	}
	tw.clk.Advance(200 * time.Second)
	tw.run(func() {})
	if conn.isClosed() {
		t.Fatalf("keepalive should have been reset")
	}

	tw.clk.Advance(50 * time.Second)
	tw.run(func() {})
	if !conn.isClosed() {
		t.Fatalf("client should time out")
	}
	if tw.w.Stats().Clients != 0 {
		t.Fatalf("client not removed")
	}
}

func TestJoinThroughChannels(t *testing.T) {
	tw := startWorld(t, nil)
	conn := &fakeConn{ip: "10.0.0.1"}
	resp := make(chan JoinResponse, 1)
	tw.w.Join() <- JoinRequest{Conn: conn, Resp: resp}
	r := <-resp

	tw.w.Inbox() <- Inbound{ClientID: r.ClientID, Frame: "HI#abc"}
	deadline := time.Now().Add(2 * time.Second)
	for withCmd(conn.snapshot(), protocol.OutID) == nil {
		if time.Now().After(deadline) {
			t.Fatalf("no ID reply: %v", conn.snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}

	tw.w.Leave() <- r.ClientID
	for tw.w.Stats().Clients != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("leave not processed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
