package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"courtroom.ai/internal/persistence/bans"
	"courtroom.ai/internal/sim/world"
	"courtroom.ai/internal/transport/directory"
	"courtroom.ai/internal/transport/observer"
)

type adminDeps struct {
	world    *world.World
	bans     bans.Store
	dir      *directory.Client // nil when the directory is disabled
	snapDir  string
	snapKeep int
	logger   *log.Logger
}

func newAdminMux(d adminDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", d.metrics)

	// Local-only admin endpoints.
	obs := observer.NewServer(d.world, d.logger)
	mux.HandleFunc("/admin/v1/areas", obs.AreasHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		path, err := writeSnapshot(ctx, d.world, d.snapDir, d.snapKeep, d.logger)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "path": filepath.Base(path)})
	})
	mux.HandleFunc("/admin/v1/bans", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(d.bans.List())
	})
	return mux
}

func (d adminDeps) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	st := d.world.Stats()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP courtroom_clients Current number of connected clients.\n")
	fmt.Fprintf(rw, "# TYPE courtroom_clients gauge\n")
	fmt.Fprintf(rw, "courtroom_clients %d\n", st.Clients)

	fmt.Fprintf(rw, "# HELP courtroom_players Clients that have selected a character.\n")
	fmt.Fprintf(rw, "# TYPE courtroom_players gauge\n")
	fmt.Fprintf(rw, "courtroom_players %d\n", st.Players)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if sums, err := d.world.AreaSummaries(ctx); err == nil {
		fmt.Fprintf(rw, "# HELP courtroom_area_members Clients in each area.\n")
		fmt.Fprintf(rw, "# TYPE courtroom_area_members gauge\n")
		for _, a := range sums {
			fmt.Fprintf(rw, "courtroom_area_members{area=%q,id=\"%d\"} %d\n", a.Name, a.ID, a.Players)
		}
		fmt.Fprintf(rw, "# HELP courtroom_area_evidence Evidence items in each area.\n")
		fmt.Fprintf(rw, "# TYPE courtroom_area_evidence gauge\n")
		for _, a := range sums {
			fmt.Fprintf(rw, "courtroom_area_evidence{area=%q,id=\"%d\"} %d\n", a.Name, a.ID, a.Evidence)
		}
	}

	fmt.Fprintf(rw, "# HELP courtroom_bans Stored IP bans.\n")
	fmt.Fprintf(rw, "# TYPE courtroom_bans gauge\n")
	fmt.Fprintf(rw, "courtroom_bans %d\n", len(d.bans.List()))

	if d.dir != nil {
		fmt.Fprintf(rw, "# HELP courtroom_directory_state Master server connection state (0 disconnected, 1 connecting, 2 registered).\n")
		fmt.Fprintf(rw, "# TYPE courtroom_directory_state gauge\n")
		fmt.Fprintf(rw, "courtroom_directory_state %d\n", int(d.dir.State()))
		fmt.Fprintf(rw, "# HELP courtroom_directory_attempts_total Master server connection attempts.\n")
		fmt.Fprintf(rw, "# TYPE courtroom_directory_attempts_total counter\n")
		fmt.Fprintf(rw, "courtroom_directory_attempts_total %d\n", d.dir.Attempts())
	}
}
