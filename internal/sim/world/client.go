package world

import (
	"sort"

	"courtroom.ai/internal/clock"
	"courtroom.ai/internal/protocol"
)

// Conn is the transport side of one connection. Send must not block; a
// transport that cannot keep up closes the connection instead.
type Conn interface {
	Send(frame []byte)
	Close()
	RemoteIP() string
}

var positions = map[string]bool{"": true, "def": true, "pro": true, "hld": true, "hlp": true, "jud": true, "wit": true}

// ICState is the per-client pose state carried between IC messages.
type ICState struct {
	Position   string
	Muted      bool
	LastEmote  string
	Flip       int
	Folder     string
	PairTarget int
	PairOffset int
}

type Client struct {
	ID        int
	HDID      string
	CharID    int
	Area      *Area
	Moderator bool
	Software  string
	Version   string
	OOCName   string

	GlobalMuted  bool
	AdvertsMuted bool

	IC ICState

	conn         Conn
	ip           string
	keepalive    clock.Timer
	keepaliveGen uint64
}

func (c *Client) IP() string { return c.ip }

// Authed reports whether the client has left character select.
func (c *Client) Authed() bool { return c.CharID >= 0 }

func (c *Client) ChangePosition(pos string) error {
	if !positions[pos] {
		return protocol.ClientError("Invalid position. Possible values: def, pro, hld, hlp, jud, wit.")
	}
	c.IC.Position = pos
	return nil
}

// ClientRegistry maps client ids to live clients. Ids increase
// monotonically and are never handed out twice.
type ClientRegistry struct {
	byID   map[int]*Client
	nextID int
}

func newClientRegistry() *ClientRegistry {
	return &ClientRegistry{byID: map[int]*Client{}}
}

func (r *ClientRegistry) add(conn Conn, area *Area) *Client {
	c := &Client{
		ID:     r.nextID,
		CharID: -1,
		Area:   area,
		conn:   conn,
		ip:     conn.RemoteIP(),
		IC:     ICState{PairTarget: -1},
	}
	r.nextID++
	r.byID[c.ID] = c
	area.add(c)
	return c
}

func (r *ClientRegistry) remove(c *Client) bool {
	if _, ok := r.byID[c.ID]; !ok {
		return false
	}
	delete(r.byID, c.ID)
	c.Area.remove(c)
	return true
}

func (r *ClientRegistry) Get(id int) (*Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *ClientRegistry) Len() int { return len(r.byID) }

// All returns live clients ordered by id.
func (r *ClientRegistry) All() []*Client {
	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Players counts clients that have selected a character.
func (r *ClientRegistry) Players() int {
	n := 0
	for _, c := range r.byID {
		if c.Authed() {
			n++
		}
	}
	return n
}

func (r *ClientRegistry) ByIP(ip string) []*Client {
	var out []*Client
	for _, c := range r.All() {
		if c.ip == ip {
			out = append(out, c)
		}
	}
	return out
}

func (r *ClientRegistry) ByOOCName(name string) []*Client {
	var out []*Client
	for _, c := range r.All() {
		if c.OOCName != "" && c.OOCName == name {
			out = append(out, c)
		}
	}
	return out
}
