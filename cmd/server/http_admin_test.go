package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courtroom.ai/internal/persistence/bans"
	"courtroom.ai/internal/persistence/snapshot"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/tuning"
	"courtroom.ai/internal/sim/world"
)

func startTestWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.Config{
		Tuning:   tuning.Defaults(),
		Areas:    areas.Config{Areas: []areas.Spec{{Name: "Basement", Background: "gs4"}}},
		Catalogs: catalogs.New([]string{"Phoenix"}, nil, nil),
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})
	return w
}

func TestAdminMux(t *testing.T) {
	w := startTestWorld(t)
	store := bans.NewMemory()
	_ = store.Ban("10.0.0.1", "spam")
	snapDir := t.TempDir()
	mux := newAdminMux(adminDeps{world: w, bans: store, snapDir: snapDir, logger: log.New(io.Discard, "", 0)})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"courtroom_clients 0", `courtroom_area_members{area="Basement",id="0"} 0`, "courtroom_bans 1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot code=%d body=%s", rec.Code, rec.Body.String())
	}
	p := snapshot.Latest(snapDir)
	if p == "" {
		t.Fatalf("no snapshot written")
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil || len(snap.Areas) != 1 {
		t.Fatalf("snapshot=%+v err=%v", snap, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote snapshot allowed: %d", rec.Code)
	}
}

func TestOpenBanStore(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard, "", 0)
	s, err := openBanStore(dir, false, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "db", "bans.sqlite")); err != nil {
		t.Fatalf("sqlite file not created: %v", err)
	}
	m, err := openBanStore(dir, true, logger)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := m.(*bans.Memory); !ok {
		t.Fatalf("disable_db should use the memory store, got %T", m)
	}
}
