package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/ooc"
)

// globalPrefix marks global chat lines; OOC names may not start with it.
const globalPrefix = "$G"

// commandEnv adapts the world to ooc.Env for one calling client.
type commandEnv struct {
	w *World
	c *Client
}

var _ ooc.Env = (*commandEnv)(nil)

func (e *commandEnv) IsModerator() bool      { return e.c.Moderator }
func (e *commandEnv) CharName() string       { return e.w.charName(e.c) }
func (e *commandEnv) Reply(msg string)       { e.w.hostMessage(e.c, msg) }
func (e *commandEnv) AreaMessage(msg string) { e.w.areaHostMessage(e.c.Area, msg) }
func (e *commandEnv) CurrentArea() int       { return e.c.Area.ID }
func (e *commandEnv) MOTD() string           { return e.w.cfg.MOTD }
func (e *commandEnv) Document() string       { return e.c.Area.Document }
func (e *commandEnv) RandInt(n int) int      { return e.w.rng.Intn(n) }
func (e *commandEnv) GlobalMuted() bool      { return e.c.GlobalMuted }
func (e *commandEnv) SetGlobalMuted(m bool)  { e.c.GlobalMuted = m }

func (e *commandEnv) ChangePosition(pos string) error { return e.c.ChangePosition(pos) }

func (e *commandEnv) AreaInfo(id int) (string, error) {
	a, err := e.w.areas.ByID(id)
	if err != nil {
		return "", err
	}
	return e.w.areaInfo(a, e.c.Moderator), nil
}

func (e *commandEnv) AllAreaInfo() string {
	var b strings.Builder
	b.WriteString("== Area List ==")
	for _, a := range e.w.areas.All() {
		b.WriteString("\r\n")
		b.WriteString(e.w.areaInfo(a, e.c.Moderator))
	}
	return b.String()
}

func (w *World) areaInfo(a *Area, withIP bool) string {
	members := a.Clients()
	sort.SliceStable(members, func(i, j int) bool { return w.charName(members[i]) < w.charName(members[j]) })
	var b strings.Builder
	fmt.Fprintf(&b, "= Area %d: %s ==", a.ID, a.Name)
	for _, m := range members {
		b.WriteString("\r\n")
		b.WriteString(w.charName(m))
		if withIP {
			fmt.Fprintf(&b, " (%s)", m.ip)
		}
	}
	return b.String()
}

func (e *commandEnv) ChangeArea(id int) error {
	target, err := e.w.areas.ByID(id)
	if err != nil {
		return err
	}
	return e.w.changeArea(e.c, target)
}

func (e *commandEnv) Login(password string) error {
	if e.c.Moderator {
		return protocol.ClientError("Already logged in.")
	}
	if e.w.cfg.ModPass == "" || password != e.w.cfg.ModPass {
		return protocol.ClientError("Invalid password.")
	}
	e.c.Moderator = true
	return nil
}

func (e *commandEnv) ChangeBackground(name string) error {
	a := e.c.Area
	if a.BGLocked && !e.c.Moderator {
		return protocol.AreaError("This area's background is locked.")
	}
	if !e.w.cats.Backgrounds.Allowed(name) {
		return protocol.AreaError("Invalid background name.")
	}
	a.Background = name
	e.w.sendArea(a, protocol.OutBackground, name)
	return nil
}

func (e *commandEnv) ToggleBackgroundLock() bool {
	e.c.Area.BGLocked = !e.c.Area.BGLocked
	return e.c.Area.BGLocked
}

func (e *commandEnv) ChangeStatus(value string) error {
	if err := e.c.Area.ChangeStatus(value); err != nil {
		return err
	}
	e.w.sendARUPStatus()
	return nil
}

func (e *commandEnv) SetCaseMaster(name string) {
	e.c.Area.SetCaseMaster(name)
	e.w.sendARUPCaseMaster()
}

func (e *commandEnv) SetDocument(url string) { e.c.Area.SetDocument(url) }

func (e *commandEnv) SendGlobal(msg string) {
	name := fmt.Sprintf("%s[%d][%s]", globalPrefix, e.c.Area.ID, e.CharName())
	e.w.sendWhere(func(o *Client) bool { return !o.GlobalMuted }, protocol.OutOOC, name, msg)
	e.w.logChat(e.c, "GLOBAL", e.c.OOCName, msg)
}

// FindTargets tries, in order: IP (moderators only), client id, character
// name in the caller's area, OOC name.
func (e *commandEnv) FindTargets(target string) []int {
	reg := e.w.clients
	if e.c.Moderator {
		if cs := reg.ByIP(target); len(cs) > 0 {
			return ids(cs)
		}
	}
	if id, err := strconv.Atoi(target); err == nil {
		if c, ok := reg.Get(id); ok {
			return []int{c.ID}
		}
	}
	if c := e.c.Area.TargetByCharName(target, e.w.cats.CharName); c != nil {
		return []int{c.ID}
	}
	return ids(reg.ByOOCName(target))
}

func ids(cs []*Client) []int {
	out := make([]int, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func (e *commandEnv) Describe(id int) string {
	c, ok := e.w.clients.Get(id)
	if !ok {
		return fmt.Sprintf("client %d", id)
	}
	return fmt.Sprintf("%s [%d]", e.w.charName(c), c.ID)
}

func (e *commandEnv) SetMuted(id int, muted bool) {
	if c, ok := e.w.clients.Get(id); ok {
		c.IC.Muted = muted
	}
}

func (e *commandEnv) Kick(id int) {
	c, ok := e.w.clients.Get(id)
	if !ok {
		return
	}
	e.w.sendTo(c, protocol.OutKicked, "Kicked by a moderator.")
	e.w.disconnect(c)
}

// Ban records the target's IP and disconnects every client sharing it.
func (e *commandEnv) Ban(id int, reason string) error {
	c, ok := e.w.clients.Get(id)
	if !ok {
		return nil
	}
	ip := c.ip
	if err := e.w.bans.Ban(ip, reason); err != nil {
		e.w.logger.Printf("ban %s: %v", ip, err)
		return protocol.ServerError("Could not store the ban.")
	}
	for _, t := range e.w.clients.ByIP(ip) {
		e.w.sendTo(t, protocol.OutBanned, reason)
		e.w.disconnect(t)
	}
	return nil
}

func (e *commandEnv) Audit(action, detail string) { e.w.audit(e.c, action, detail) }
