package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"courtroom.ai/internal/persistence/bans"
)

func bansCmd(args []string) {
	fs := flag.NewFlagSet("bans", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = banDBPath(*dataDir)
	}
	store, err := bans.OpenSQLite(path)
	if err != nil {
		fail("open: %v", err)
	}
	defer store.Close()

	op := "list"
	if fs.NArg() > 0 {
		op = fs.Arg(0)
	}
	switch op {
	case "list":
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "IP\tBANNED AT\tREASON")
		for _, e := range store.List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.IP, e.BannedAt.Format(time.RFC3339), e.Reason)
		}
		_ = tw.Flush()
	case "add":
		if fs.NArg() < 2 {
			fail("usage: admin bans add <ip> [reason]")
		}
		reason := strings.Join(fs.Args()[2:], " ")
		if reason == "" {
			reason = "banned by admin"
		}
		if err := store.Ban(fs.Arg(1), reason); err != nil {
			fail("ban: %v", err)
		}
		fmt.Printf("banned %s\n", fs.Arg(1))
	case "remove":
		if fs.NArg() < 2 {
			fail("usage: admin bans remove <ip>")
		}
		ok, err := store.Remove(fs.Arg(1))
		if err != nil {
			fail("remove: %v", err)
		}
		if !ok {
			fail("%s is not banned", fs.Arg(1))
		}
		fmt.Printf("unbanned %s\n", fs.Arg(1))
	default:
		fail("unknown bans operation %q", op)
	}
}
