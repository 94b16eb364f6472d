package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "bans":
		bansCmd(args)
	case "logs":
		logsCmd(args)
	case "snapshot":
		snapshotCmd(args)
	case "areas":
		areasCmd(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

commands:
  bans list|add <ip> [reason]|remove <ip>   edit the ban database (the server reads it at startup)
  logs <file.jsonl.zst>...                  print chat or audit log entries
  snapshot [-url URL | <file.snap.zst>]     take a snapshot on a running server, or summarize a file
  areas [-url URL]                          print live area summaries`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func banDBPath(dataDir string) string { return filepath.Join(dataDir, "db", "bans.sqlite") }
