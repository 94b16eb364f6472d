package ooc

import (
	"fmt"
	"strings"

	"courtroom.ai/internal/protocol"
)

const (
	defaultDice = 6
	maxDice     = 999
)

// Default returns a registry holding the built-in commands.
func Default() *Registry {
	r := NewRegistry()
	for _, c := range builtins(r) {
		r.Register(c)
	}
	return r
}

func builtins(r *Registry) []Command {
	target := Schema{{Name: "target", Kind: String, Multiword: true}}
	return []Command{
		{
			Name: "help",
			Help: "List available commands.",
			Run: func(env Env, _ Values) error {
				var b strings.Builder
				b.WriteString("Available commands:")
				for _, n := range r.Names() {
					c, _ := r.Lookup(n)
					if c.ModOnly && !env.IsModerator() {
						continue
					}
					fmt.Fprintf(&b, "\r\n/%s - %s", c.Name, c.Help)
				}
				env.Reply(b.String())
				return nil
			},
		},
		{
			Name: "pos",
			Help: "Set or reset your position.",
			Args: Schema{{Name: "position", Kind: String, Optional: true}},
			Run: func(env Env, a Values) error {
				if err := env.ChangePosition(a.Str("position")); err != nil {
					return err
				}
				if a.Has("position") {
					env.Reply("Position changed.")
				} else {
					env.Reply("Position reset.")
				}
				return nil
			},
		},
		{
			Name: "area",
			Help: "List areas or move to an area by id.",
			Args: Schema{{Name: "target_area", Kind: Integer, Optional: true}},
			Run: func(env Env, a Values) error {
				if !a.Has("target_area") {
					env.Reply(env.AllAreaInfo())
					return nil
				}
				return env.ChangeArea(a.Int("target_area"))
			},
		},
		{
			Name: "getarea",
			Help: "Show who is in your area.",
			Run: func(env Env, _ Values) error {
				info, err := env.AreaInfo(env.CurrentArea())
				if err != nil {
					return err
				}
				env.Reply(info)
				return nil
			},
		},
		{
			Name: "getareas",
			Help: "Show who is in every area.",
			Run: func(env Env, _ Values) error {
				env.Reply(env.AllAreaInfo())
				return nil
			},
		},
		{
			Name: "login",
			Help: "Log in as a moderator.",
			Args: Schema{{Name: "password", Kind: String, Multiword: true}},
			Run: func(env Env, a Values) error {
				if err := env.Login(a.Str("password")); err != nil {
					return err
				}
				env.Reply("Logged in as a moderator.")
				env.Audit("login", env.CharName())
				return nil
			},
		},
		{
			Name: "motd",
			Help: "Show the message of the day.",
			Run: func(env Env, _ Values) error {
				env.Reply("=== MOTD ===\r\n" + env.MOTD() + "\r\n=============")
				return nil
			},
		},
		{
			Name: "bg",
			Help: "Change the area background.",
			Args: Schema{{Name: "background", Kind: String, Multiword: true}},
			Run: func(env Env, a Values) error {
				bg := a.Str("background")
				if err := env.ChangeBackground(bg); err != nil {
					return err
				}
				env.AreaMessage(fmt.Sprintf("%s changed the background to %s.", env.CharName(), bg))
				return nil
			},
		},
		{
			Name:    "bglock",
			Help:    "Toggle the background lock of your area.",
			ModOnly: true,
			Run: func(env Env, _ Values) error {
				state := "unlocked"
				if env.ToggleBackgroundLock() {
					state = "locked"
				}
				env.AreaMessage(fmt.Sprintf("A moderator %s the background.", state))
				return nil
			},
		},
		{
			Name: "status",
			Help: "Set the area status: idle, building, casing or recess.",
			Args: Schema{{Name: "status", Kind: String}},
			Run: func(env Env, a Values) error {
				if err := env.ChangeStatus(a.Str("status")); err != nil {
					return err
				}
				env.AreaMessage(fmt.Sprintf("%s changed status to %s.", env.CharName(), strings.ToUpper(a.Str("status"))))
				return nil
			},
		},
		{
			Name: "cm",
			Help: "Become case master, or name one.",
			Args: Schema{{Name: "name", Kind: String, Optional: true, Multiword: true}},
			Run: func(env Env, a Values) error {
				name := env.CharName()
				if a.Has("name") {
					name = a.Str("name")
				}
				env.SetCaseMaster(name)
				env.AreaMessage(fmt.Sprintf("%s is now case master.", name))
				return nil
			},
		},
		{
			Name: "doc",
			Help: "Show or set the case document.",
			Args: Schema{{Name: "url", Kind: String, Optional: true, Multiword: true}},
			Run: func(env Env, a Values) error {
				if !a.Has("url") {
					env.Reply("Document: " + env.Document())
					return nil
				}
				env.SetDocument(a.Str("url"))
				env.AreaMessage(fmt.Sprintf("%s changed the document.", env.CharName()))
				return nil
			},
		},
		{
			Name: "roll",
			Help: "Roll a die (default 6 sides).",
			Args: Schema{{Name: "sides", Kind: Integer, Optional: true}},
			Run: func(env Env, a Values) error {
				sides := defaultDice
				if a.Has("sides") {
					sides = a.Int("sides")
				}
				if sides < 1 || sides > maxDice {
					return protocol.ArgumentError("Roll value must be between 1 and %d.", maxDice)
				}
				roll := env.RandInt(sides) + 1
				env.AreaMessage(fmt.Sprintf("%s rolled %d out of %d.", env.CharName(), roll, sides))
				return nil
			},
		},
		{
			Name: "g",
			Help: "Send a message to every area.",
			Args: Schema{{Name: "message", Kind: String, Multiword: true}},
			Run: func(env Env, a Values) error {
				if env.GlobalMuted() {
					return protocol.ClientError("You have the global chat muted.")
				}
				env.SendGlobal(a.Str("message"))
				return nil
			},
		},
		{
			Name: "toggleglobal",
			Help: "Mute or unmute global chat.",
			Run: func(env Env, _ Values) error {
				muted := !env.GlobalMuted()
				env.SetGlobalMuted(muted)
				if muted {
					env.Reply("Global chat muted.")
				} else {
					env.Reply("Global chat unmuted.")
				}
				return nil
			},
		},
		{
			Name:    "mute",
			Help:    "Stop a client from sending IC messages.",
			ModOnly: true,
			Args:    target,
			Run:     func(env Env, a Values) error { return setMuted(env, a.Str("target"), true) },
		},
		{
			Name:    "unmute",
			Help:    "Allow a muted client to speak again.",
			ModOnly: true,
			Args:    target,
			Run:     func(env Env, a Values) error { return setMuted(env, a.Str("target"), false) },
		},
		{
			Name:    "kick",
			Help:    "Disconnect a client.",
			ModOnly: true,
			Args:    target,
			Run: func(env Env, a Values) error {
				ids, err := resolve(env, a.Str("target"))
				if err != nil {
					return err
				}
				for _, id := range ids {
					desc := env.Describe(id)
					env.Kick(id)
					env.Reply("Kicked " + desc + ".")
					env.Audit("kick", desc)
				}
				return nil
			},
		},
		{
			Name:    "ban",
			Help:    "Ban a client's IP and disconnect them.",
			ModOnly: true,
			Args:    target,
			Run: func(env Env, a Values) error {
				ids, err := resolve(env, a.Str("target"))
				if err != nil {
					return err
				}
				for _, id := range ids {
					desc := env.Describe(id)
					if err := env.Ban(id, "banned by "+env.CharName()); err != nil {
						return err
					}
					env.Reply("Banned " + desc + ".")
					env.Audit("ban", desc)
				}
				return nil
			},
		},
	}
}

func resolve(env Env, target string) ([]int, error) {
	ids := env.FindTargets(target)
	if len(ids) == 0 {
		return nil, protocol.ClientError("No targets found.")
	}
	return ids, nil
}

func setMuted(env Env, target string, muted bool) error {
	ids, err := resolve(env, target)
	if err != nil {
		return err
	}
	verb := "Unmuted"
	if muted {
		verb = "Muted"
	}
	for _, id := range ids {
		env.SetMuted(id, muted)
		env.Reply(fmt.Sprintf("%s %s.", verb, env.Describe(id)))
		env.Audit(strings.ToLower(verb), env.Describe(id))
	}
	return nil
}
