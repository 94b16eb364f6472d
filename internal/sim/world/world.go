package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"courtroom.ai/internal/clock"
	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/ooc"
	"courtroom.ai/internal/sim/tuning"
)

const (
	SoftwareName    = "courtroom"
	SoftwareVersion = "1.0.0"
)

// BanList is consulted at handshake and extended by moderators.
type BanList interface {
	IsBanned(ip string) bool
	Ban(ip, reason string) error
}

type Config struct {
	Tuning   tuning.Tuning
	Areas    areas.Config
	Catalogs *catalogs.Catalogs
	Commands *ooc.Registry
	Bans     BanList
	Clock    clock.Clock
	Logger   *log.Logger
	Seed     int64
}

// World owns all area and client state. Every mutation happens on the Run
// goroutine; transports talk to it through channels.
type World struct {
	cfg    tuning.Tuning
	cats   *catalogs.Catalogs
	cmds   *ooc.Registry
	bans   BanList
	clk    clock.Clock
	logger *log.Logger
	rng    *rand.Rand

	areas   *AreaRegistry
	clients *ClientRegistry

	join  chan JoinRequest
	inbox chan Inbound
	leave chan int
	fire  chan timerEvent
	calls chan call
	stop  chan struct{}
	done  chan struct{}

	clientCount atomic.Int64
	playerCount atomic.Int64

	chatLogger  ChatLogger
	auditLogger AuditLogger
}

type JoinRequest struct {
	Conn Conn
	Resp chan JoinResponse
}

type JoinResponse struct {
	ClientID int
}

// Inbound is one decoded frame from a client.
type Inbound struct {
	ClientID int
	Frame    string
}

type call struct {
	fn   func()
	done chan struct{}
}

var ErrStopped = errors.New("world stopped")

func New(cfg Config) (*World, error) {
	if cfg.Catalogs == nil {
		return nil, errors.New("world: catalogs required")
	}
	if err := cfg.Areas.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if cfg.Commands == nil {
		cfg.Commands = ooc.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Bans == nil {
		cfg.Bans = noBans{}
	}
	def := tuning.Defaults()
	if cfg.Tuning.TimeoutSec <= 0 {
		cfg.Tuning.TimeoutSec = def.TimeoutSec
	}
	if cfg.Tuning.Hostname == "" {
		cfg.Tuning.Hostname = def.Hostname
	}
	if cfg.Tuning.PlayerLimit <= 0 {
		cfg.Tuning.PlayerLimit = def.PlayerLimit
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		cfg:     cfg.Tuning,
		cats:    cfg.Catalogs,
		cmds:    cfg.Commands,
		bans:    cfg.Bans,
		clk:     cfg.Clock,
		logger:  cfg.Logger,
		rng:     rand.New(rand.NewSource(seed)),
		areas:   newAreaRegistry(cfg.Areas),
		clients: newClientRegistry(),
		join:    make(chan JoinRequest, 64),
		inbox:   make(chan Inbound, 1024),
		leave:   make(chan int, 64),
		fire:    make(chan timerEvent),
		calls:   make(chan call),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	return w, nil
}

func (w *World) SetChatLogger(l ChatLogger)   { w.chatLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Inbox() chan<- Inbound    { return w.inbox }
func (w *World) Leave() chan<- int        { return w.leave }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			c := w.connect(req.Conn)
			req.Resp <- JoinResponse{ClientID: c.ID}
		case in := <-w.inbox:
			w.handleFrame(in.ClientID, in.Frame)
		case id := <-w.leave:
			if c, ok := w.clients.Get(id); ok {
				w.removeClient(c)
			}
		case ev := <-w.fire:
			w.handleTimer(ev)
		case cl := <-w.calls:
			cl.fn()
			close(cl.done)
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// do runs fn on the world goroutine and waits for it.
func (w *World) do(ctx context.Context, fn func()) error {
	cl := call{fn: fn, done: make(chan struct{})}
	select {
	case w.calls <- cl:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
	select {
	case <-cl.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) shutdown() {
	for _, a := range w.areas.All() {
		a.stopMusic()
	}
	for _, c := range w.clients.All() {
		if c.keepalive != nil {
			c.keepalive.Stop()
		}
		c.conn.Close()
	}
}

// Stats is safe to call from any goroutine.
type Stats struct {
	Clients int
	Players int
}

func (w *World) Stats() Stats {
	return Stats{Clients: int(w.clientCount.Load()), Players: int(w.playerCount.Load())}
}

func (w *World) updateCounts() {
	w.clientCount.Store(int64(w.clients.Len()))
	w.playerCount.Store(int64(w.clients.Players()))
}

func (w *World) connect(conn Conn) *Client {
	c := w.clients.add(conn, w.areas.Default())
	w.updateCounts()
	w.sendTo(c, protocol.OutDecryptor, "NOENCRYPT")
	w.resetKeepalive(c)
	w.logger.Printf("client %d connected from %s", c.ID, c.ip)
	return c
}

// disconnect closes the transport and drops the client right away; the
// transport's later leave notification is then a no-op.
func (w *World) disconnect(c *Client) {
	c.conn.Close()
	w.removeClient(c)
}

func (w *World) removeClient(c *Client) {
	if !w.clients.remove(c) {
		return
	}
	c.keepaliveGen++
	if c.keepalive != nil {
		c.keepalive.Stop()
		c.keepalive = nil
	}
	w.updateCounts()
	w.logger.Printf("client %d disconnected (%s)", c.ID, w.charName(c))
	w.sendARUPPlayers()
}

func (w *World) charName(c *Client) string { return w.cats.CharName(c.CharID) }

func (w *World) sendTo(c *Client, cmd string, args ...string) {
	frame := protocol.Encode(cmd, args...)
	if w.cfg.Debug {
		w.logger.Printf("[SND][%d] %s", c.ID, frame)
	}
	c.conn.Send(frame)
}

func (w *World) sendArea(a *Area, cmd string, args ...string) {
	for _, c := range a.Clients() {
		w.sendTo(c, cmd, args...)
	}
}

func (w *World) sendAll(cmd string, args ...string) {
	w.sendWhere(func(*Client) bool { return true }, cmd, args...)
}

func (w *World) sendWhere(pred func(*Client) bool, cmd string, args ...string) {
	for _, c := range w.clients.All() {
		if pred(c) {
			w.sendTo(c, cmd, args...)
		}
	}
}

func (w *World) hostMessage(c *Client, msg string) {
	w.sendTo(c, protocol.OutOOC, w.cfg.Hostname, msg)
}

func (w *World) areaHostMessage(a *Area, msg string) {
	w.sendArea(a, protocol.OutOOC, w.cfg.Hostname, msg)
}

func (w *World) sendMOTD(c *Client) {
	w.hostMessage(c, "=== MOTD ===\r\n"+w.cfg.MOTD+"\r\n=============")
}

func (w *World) sendEvidence(c *Client) {
	w.sendTo(c, protocol.OutEvidence, c.Area.Evidence.Packet()...)
}

func (w *World) sendAreaEvidence(a *Area) {
	w.sendArea(a, protocol.OutEvidence, a.Evidence.Packet()...)
}

func (w *World) sendARUPPlayers() {
	args := []string{"0"}
	for _, a := range w.areas.All() {
		args = append(args, strconv.Itoa(a.Len()))
	}
	w.sendAll(protocol.OutAreaUpdate, args...)
}

func (w *World) sendARUPStatus() {
	args := []string{"1"}
	for _, a := range w.areas.All() {
		args = append(args, string(a.Status))
	}
	w.sendAll(protocol.OutAreaUpdate, args...)
}

func (w *World) sendARUPCaseMaster() {
	args := []string{"2"}
	for _, a := range w.areas.All() {
		args = append(args, a.CaseMaster)
	}
	w.sendAll(protocol.OutAreaUpdate, args...)
}

func (w *World) sendARUPLock() {
	args := []string{"3"}
	for range w.areas.All() {
		args = append(args, "FREE")
	}
	w.sendAll(protocol.OutAreaUpdate, args...)
}

func (w *World) sendARUPAll() {
	w.sendARUPPlayers()
	w.sendARUPStatus()
	w.sendARUPCaseMaster()
	w.sendARUPLock()
}

type noBans struct{}

func (noBans) IsBanned(string) bool     { return false }
func (noBans) Ban(string, string) error { return nil }
