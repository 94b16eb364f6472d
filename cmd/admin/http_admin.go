package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courtroom.ai/internal/persistence/snapshot"
)

func areasCmd(args []string) {
	fs := flag.NewFlagSet("areas", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/areas"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fail("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		fail("status %s", resp.Status)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	if fs.NArg() > 0 {
		summarizeSnapshot(fs.Arg(0))
		return
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/snapshot"
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fail("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		fail("status %s", resp.Status)
	}
}

func summarizeSnapshot(path string) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fail("read: %v", err)
	}
	fmt.Printf("snapshot v%d taken %s, %d areas\n", snap.Header.Version,
		time.UnixMilli(snap.Header.CreatedAt).UTC().Format(time.RFC3339), len(snap.Areas))
	for _, a := range snap.Areas {
		lock := ""
		if a.BGLocked {
			lock = " (locked)"
		}
		fmt.Printf("  [%d] %s: bg=%s%s status=%s hp=%d/%d cm=%s evidence=%d\n",
			a.ID, a.Name, a.Background, lock, a.Status, a.DefHP, a.ProHP, a.CaseMaster, len(a.Evidence))
	}
}
