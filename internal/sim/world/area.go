package world

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"courtroom.ai/internal/clock"
	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/areas"
)

type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusBuilding Status = "BUILDING"
	StatusCasing   Status = "CASING"
	StatusRecess   Status = "RECESS"
)

func (s Status) casingOnly() bool { return s == StatusCasing || s == StatusRecess }

func parseStatus(v string) (Status, bool) {
	switch s := Status(strings.ToUpper(v)); s {
	case StatusIdle, StatusBuilding, StatusCasing, StatusRecess:
		return s, true
	}
	return "", false
}

const (
	maxHP            = 10
	caseMasterMaxLen = 20
	defaultDocument  = "No document."
	noCaseMaster     = "None"

	floodBaseMs    = 100
	floodPerRuneMs = 50
	floodMaxMs     = 3000
)

// Area is a room. It is created from configuration at startup and lives for
// the whole process; ids are positions in the area list.
type Area struct {
	ID         int
	Name       string
	Background string
	BGLocked   bool
	Casing     bool
	Status     Status
	DefHP      int
	ProHP      int
	CaseMaster string
	Document   string
	Evidence   EvidenceStore

	clients     map[*Client]struct{}
	nextMessage time.Time

	music    clock.Timer
	musicGen uint64
}

func newArea(id int, spec areas.Spec) *Area {
	return &Area{
		ID:         id,
		Name:       spec.Name,
		Background: spec.Background,
		BGLocked:   spec.BGLock,
		Casing:     spec.Casing,
		Status:     StatusIdle,
		DefHP:      maxHP,
		ProHP:      maxHP,
		CaseMaster: noCaseMaster,
		Document:   defaultDocument,
		clients:    map[*Client]struct{}{},
	}
}

func (a *Area) add(c *Client)    { a.clients[c] = struct{}{} }
func (a *Area) remove(c *Client) { delete(a.clients, c) }

func (a *Area) Len() int { return len(a.clients) }

func (a *Area) Has(c *Client) bool {
	_, ok := a.clients[c]
	return ok
}

// Clients returns the members ordered by client id.
func (a *Area) Clients() []*Client {
	out := make([]*Client, 0, len(a.clients))
	for c := range a.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CharAvailable reports whether no member has selected charID.
func (a *Area) CharAvailable(charID int) bool {
	for c := range a.clients {
		if c.CharID == charID {
			return false
		}
	}
	return true
}

func (a *Area) takenChars() map[int]bool {
	taken := map[int]bool{}
	for c := range a.clients {
		if c.CharID >= 0 {
			taken[c.CharID] = true
		}
	}
	return taken
}

// RandomFreeChar picks uniformly among characters nobody in the area holds.
func (a *Area) RandomFreeChar(rng *rand.Rand, charCount int) (int, error) {
	taken := a.takenChars()
	free := make([]int, 0, charCount)
	for i := 0; i < charCount; i++ {
		if !taken[i] {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return -1, protocol.AreaError("No available characters.")
	}
	return free[rng.Intn(len(free))], nil
}

// CharsCheck renders per-character availability: 0 free, -1 taken.
func (a *Area) CharsCheck(charCount int) []int {
	taken := a.takenChars()
	out := make([]int, charCount)
	for i := range out {
		if taken[i] {
			out[i] = -1
		}
	}
	return out
}

func (a *Area) TargetByCharName(name string, chars func(int) string) *Client {
	for _, c := range a.Clients() {
		if c.CharID >= 0 && chars(c.CharID) == name {
			return c
		}
	}
	return nil
}

// CanSend reports whether the flood gate is open at now.
func (a *Area) CanSend(now time.Time) bool {
	return !now.Before(a.nextMessage)
}

// FloodDelay is the room-wide cooldown after a message of n runes.
func FloodDelay(n int) time.Duration {
	ms := floodBaseMs + floodPerRuneMs*n
	if ms > floodMaxMs {
		ms = floodMaxMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (a *Area) advanceFloodGate(now time.Time, runes int) {
	a.nextMessage = now.Add(FloodDelay(runes))
}

// NextMessageAt is when the flood gate next opens.
func (a *Area) NextMessageAt() time.Time { return a.nextMessage }

func (a *Area) ChangeHP(side, value int) error {
	if value < 0 || value > maxHP {
		return protocol.AreaError("Invalid penalty value.")
	}
	switch side {
	case 1:
		a.DefHP = value
	case 2:
		a.ProHP = value
	default:
		return protocol.AreaError("Invalid penalty side.")
	}
	return nil
}

func (a *Area) ChangeStatus(value string) error {
	s, ok := parseStatus(value)
	if !ok {
		return protocol.AreaError("Invalid status. Possible values: idle, building, casing, recess")
	}
	if s.casingOnly() && !a.Casing {
		return protocol.AreaError("This area does not allow casing.")
	}
	if s == a.Status {
		return protocol.AreaError("This status is already set.")
	}
	a.Status = s
	return nil
}

func (a *Area) SetCaseMaster(name string) {
	a.CaseMaster = truncateRunes(name, caseMasterMaxLen)
}

func (a *Area) SetDocument(url string) {
	if url == "" {
		url = defaultDocument
	}
	a.Document = url
}

func (a *Area) stopMusic() {
	a.musicGen++
	if a.music != nil {
		a.music.Stop()
		a.music = nil
	}
}

// AreaRegistry is the ordered list of areas.
type AreaRegistry struct {
	areas []*Area
}

func newAreaRegistry(cfg areas.Config) *AreaRegistry {
	r := &AreaRegistry{}
	for i, spec := range cfg.Areas {
		r.areas = append(r.areas, newArea(i, spec))
	}
	return r
}

func (r *AreaRegistry) All() []*Area { return r.areas }
func (r *AreaRegistry) Len() int     { return len(r.areas) }

// Default is where new connections land.
func (r *AreaRegistry) Default() *Area { return r.areas[0] }

func (r *AreaRegistry) ByID(id int) (*Area, error) {
	if id < 0 || id >= len(r.areas) {
		return nil, protocol.AreaError("Area not found.")
	}
	return r.areas[id], nil
}

func (r *AreaRegistry) ByName(name string) (*Area, error) {
	for _, a := range r.areas {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, protocol.AreaError("Area not found.")
}

func (r *AreaRegistry) Names() []string {
	out := make([]string, 0, len(r.areas))
	for _, a := range r.areas {
		out = append(out, a.Name)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
