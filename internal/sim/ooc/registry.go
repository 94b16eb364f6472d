// Package ooc is the table of out-of-character slash commands. Commands
// reach server state only through Env.
package ooc

import (
	"sort"

	"courtroom.ai/internal/protocol"
)

type Status int

const (
	OK Status = iota
	NotFound
	Failed
)

// Result is what the dispatcher relays: nothing on OK, "Invalid command."
// on NotFound, Message as a host message on Failed.
type Result struct {
	Status  Status
	Message string
}

// Env is the calling client's view of the server.
type Env interface {
	IsModerator() bool
	CharName() string
	Reply(msg string)
	AreaMessage(msg string)

	ChangePosition(pos string) error
	CurrentArea() int
	AreaInfo(id int) (string, error)
	AllAreaInfo() string
	ChangeArea(id int) error

	Login(password string) error
	MOTD() string

	ChangeBackground(name string) error
	ToggleBackgroundLock() bool
	ChangeStatus(value string) error
	SetCaseMaster(name string)
	Document() string
	SetDocument(url string)

	RandInt(n int) int
	GlobalMuted() bool
	SetGlobalMuted(muted bool)
	SendGlobal(msg string)

	// FindTargets resolves a moderator-supplied target to client ids.
	FindTargets(target string) []int
	Describe(id int) string
	SetMuted(id int, muted bool)
	Kick(id int)
	Ban(id int, reason string) error
	Audit(action, detail string)
}

type Handler func(env Env, args Values) error

type Command struct {
	Name    string
	Help    string
	ModOnly bool
	Args    Schema
	Run     Handler
}

type Registry struct {
	cmds map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{cmds: map[string]Command{}}
}

// Register adds cmd, replacing any command with the same name.
func (r *Registry) Register(cmd Command) {
	r.cmds[cmd.Name] = cmd
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Execute runs name with the raw argument string on behalf of env.
func (r *Registry) Execute(env Env, name, arg string) Result {
	cmd, ok := r.cmds[name]
	if !ok {
		return Result{Status: NotFound}
	}
	if cmd.ModOnly && !env.IsModerator() {
		return Result{Status: Failed, Message: "You must be logged in as a moderator to do that."}
	}
	vals, err := cmd.Args.Parse(arg)
	if err != nil {
		return failure(err)
	}
	if err := cmd.Run(env, vals); err != nil {
		return failure(err)
	}
	return Result{Status: OK}
}

func failure(err error) Result {
	if msg, ok := protocol.UserMessage(err); ok {
		return Result{Status: Failed, Message: msg}
	}
	return Result{Status: Failed, Message: "An internal error occurred."}
}
