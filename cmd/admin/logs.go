package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	persistlog "courtroom.ai/internal/persistence/log"
	"courtroom.ai/internal/sim/world"
)

func logsCmd(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	dataDir := fs.String("data", "", "print every file under <data>/logs/<kind> instead of named files")
	kind := fs.String("kind", "chat", "log kind with -data: chat or audit")
	raw := fs.Bool("raw", false, "print JSON lines unformatted")
	_ = fs.Parse(args)

	files := fs.Args()
	if *dataDir != "" {
		var err error
		files, err = persistlog.Files(filepath.Join(*dataDir, "logs", *kind))
		if err != nil {
			fail("list: %v", err)
		}
	}
	if len(files) == 0 {
		fail("no log files")
	}
	for _, f := range files {
		err := persistlog.ReadLines(f, func(line []byte) error {
			if *raw {
				fmt.Println(string(line))
				return nil
			}
			fmt.Println(formatLine(line))
			return nil
		})
		if err != nil {
			fail("%s: %v", f, err)
		}
	}
}

// formatLine renders chat and audit entries as one readable line; anything
// else is printed as is.
func formatLine(line []byte) string {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return string(line)
	}
	if _, ok := probe["action"]; ok {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err == nil {
			return fmt.Sprintf("%s [%d] %s (%s) %s %s", e.At.Format(time.DateTime), e.AreaID, e.Actor, e.ActorIP, strings.ToUpper(e.Action), e.Detail)
		}
	}
	var e world.ChatEntry
	if err := json.Unmarshal(line, &e); err != nil || e.Kind == "" {
		return string(line)
	}
	who := e.Char
	if e.Name != "" {
		who = fmt.Sprintf("%s/%s", e.Char, e.Name)
	}
	return fmt.Sprintf("%s [%d][%s] %s: %s", e.At.Format(time.DateTime), e.AreaID, e.Kind, who, e.Text)
}

