package ooc

import (
	"strings"
	"testing"

	"courtroom.ai/internal/protocol"
)

type fakeEnv struct {
	mod      bool
	replies  []string
	area     []string
	pos      string
	bg       string
	muted    map[int]bool
	kicked   []int
	banned   []int
	global   []string
	gmute    bool
	targets  map[string][]int
	audits   []string
	password string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{muted: map[int]bool{}, targets: map[string][]int{}, password: "pw"}
}

func (f *fakeEnv) IsModerator() bool      { return f.mod }
func (f *fakeEnv) CharName() string       { return "Phoenix" }
func (f *fakeEnv) Reply(msg string)       { f.replies = append(f.replies, msg) }
func (f *fakeEnv) AreaMessage(msg string) { f.area = append(f.area, msg) }
func (f *fakeEnv) ChangePosition(pos string) error {
	switch pos {
	case "", "def", "pro", "hld", "hlp", "jud", "wit":
		f.pos = pos
		return nil
	}
	return protocol.ClientError("Invalid position.")
}
func (f *fakeEnv) CurrentArea() int { return 0 }
func (f *fakeEnv) AreaInfo(id int) (string, error) {
	if id != 0 {
		return "", protocol.AreaError("Area not found.")
	}
	return "= Area 0: Basement ==", nil
}
func (f *fakeEnv) AllAreaInfo() string { return "== Area List ==" }
func (f *fakeEnv) ChangeArea(id int) error {
	if id != 1 {
		return protocol.AreaError("Area not found.")
	}
	return nil
}
func (f *fakeEnv) Login(pw string) error {
	if pw != f.password {
		return protocol.ClientError("Invalid password.")
	}
	f.mod = true
	return nil
}
func (f *fakeEnv) MOTD() string                      { return "hello" }
func (f *fakeEnv) ChangeBackground(name string) error { f.bg = name; return nil }
func (f *fakeEnv) ToggleBackgroundLock() bool        { return true }
func (f *fakeEnv) ChangeStatus(v string) error       { return nil }
func (f *fakeEnv) SetCaseMaster(string)              {}
func (f *fakeEnv) Document() string                  { return "No document." }
func (f *fakeEnv) SetDocument(string)                {}
func (f *fakeEnv) RandInt(n int) int                 { return n - 1 }
func (f *fakeEnv) GlobalMuted() bool                 { return f.gmute }
func (f *fakeEnv) SetGlobalMuted(m bool)             { f.gmute = m }
func (f *fakeEnv) SendGlobal(msg string)             { f.global = append(f.global, msg) }
func (f *fakeEnv) FindTargets(t string) []int        { return f.targets[t] }
func (f *fakeEnv) Describe(id int) string            { return "client" }
func (f *fakeEnv) SetMuted(id int, m bool)           { f.muted[id] = m }
func (f *fakeEnv) Kick(id int)                       { f.kicked = append(f.kicked, id) }
func (f *fakeEnv) Ban(id int, reason string) error   { f.banned = append(f.banned, id); return nil }
func (f *fakeEnv) Audit(action, detail string)       { f.audits = append(f.audits, action) }

func TestExecute_NotFound(t *testing.T) {
	r := Default()
	if res := r.Execute(newFakeEnv(), "nosuch", ""); res.Status != NotFound {
		t.Fatalf("res=%+v", res)
	}
}

func TestExecute_ModOnly(t *testing.T) {
	r := Default()
	env := newFakeEnv()
	env.targets["Edgeworth"] = []int{2}
	res := r.Execute(env, "kick", "Edgeworth")
	if res.Status != Failed || res.Message != "You must be logged in as a moderator to do that." {
		t.Fatalf("res=%+v", res)
	}
	if len(env.kicked) != 0 {
		t.Fatalf("non-moderator kicked someone")
	}

	if res := r.Execute(env, "login", "pw"); res.Status != OK {
		t.Fatalf("login: %+v", res)
	}
	if res := r.Execute(env, "kick", "Edgeworth"); res.Status != OK {
		t.Fatalf("kick: %+v", res)
	}
	if len(env.kicked) != 1 || env.kicked[0] != 2 {
		t.Fatalf("kicked=%v", env.kicked)
	}
	if res := r.Execute(env, "ban", "nobody"); res.Status != Failed || res.Message != "No targets found." {
		t.Fatalf("ban unknown: %+v", res)
	}
}

func TestExecute_DomainErrorRelayed(t *testing.T) {
	r := Default()
	env := newFakeEnv()
	res := r.Execute(env, "pos", "bench")
	if res.Status != Failed || res.Message != "Invalid position." {
		t.Fatalf("res=%+v", res)
	}
	res = r.Execute(env, "area", "x")
	if res.Status != Failed || res.Message != "target_area must be an integer." {
		t.Fatalf("res=%+v", res)
	}
	res = r.Execute(env, "login", "wrong")
	if res.Status != Failed || res.Message != "Invalid password." {
		t.Fatalf("res=%+v", res)
	}
}

func TestBuiltins(t *testing.T) {
	r := Default()
	env := newFakeEnv()

	r.Execute(env, "pos", "wit")
	r.Execute(env, "pos", "")
	if env.pos != "" || env.replies[len(env.replies)-1] != "Position reset." {
		t.Fatalf("pos reset: %q %q", env.pos, env.replies)
	}

	r.Execute(env, "roll", "20")
	if got := env.area[len(env.area)-1]; got != "Phoenix rolled 20 out of 20." {
		t.Fatalf("roll=%q", got)
	}
	if res := r.Execute(env, "roll", "0"); res.Status != Failed {
		t.Fatalf("roll 0 should fail")
	}

	r.Execute(env, "bg", "gs4 night")
	if env.bg != "gs4 night" {
		t.Fatalf("bg=%q", env.bg)
	}

	r.Execute(env, "toggleglobal", "")
	if res := r.Execute(env, "g", "hello all"); res.Status != Failed {
		t.Fatalf("global while muted: %+v", res)
	}
	r.Execute(env, "toggleglobal", "")
	r.Execute(env, "g", "hello all")
	if len(env.global) != 1 || env.global[0] != "hello all" {
		t.Fatalf("global=%q", env.global)
	}

	r.Execute(env, "help", "")
	help := env.replies[len(env.replies)-1]
	if !strings.Contains(help, "/roll") || strings.Contains(help, "/kick") {
		t.Fatalf("help should hide moderator commands: %q", help)
	}
	if res := r.Execute(env, "getarea", "extra"); res.Status != Failed {
		t.Fatalf("getarea takes no args")
	}
}
