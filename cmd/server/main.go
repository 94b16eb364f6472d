package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"courtroom.ai/internal/persistence/archive"
	"courtroom.ai/internal/persistence/snapshot"
	"courtroom.ai/internal/sim/areas"
	"courtroom.ai/internal/sim/catalogs"
	"courtroom.ai/internal/sim/tuning"
	"courtroom.ai/internal/sim/world"
	"courtroom.ai/internal/transport/directory"
	"courtroom.ai/internal/transport/tcp"
	"courtroom.ai/internal/transport/ws"
)

func main() {
	var (
		configDir   = flag.String("configs", "./configs", "config directory")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		configPath  = flag.String("config", "", "path to config.yaml (default: <configs>/config.yaml)")
		areasPath   = flag.String("areas", "", "path to areas.yaml (default: <configs>/areas.yaml)")
		addr        = flag.String("addr", "", "tcp listen address (default: :<port from config.yaml>)")
		wsAddr      = flag.String("ws_addr", "", "websocket listen address (empty to disable)")
		httpAddr    = flag.String("http_addr", "127.0.0.1:8080", "health/metrics/admin listen address (empty to disable)")
		disableDB   = flag.Bool("disable_db", false, "keep bans in memory only")
		loadLatest  = flag.Bool("load_latest_snapshot", true, "restore area state from the latest snapshot in the data dir")
		watchConfig = flag.Bool("watch_config", true, "reload config.yaml when it changes")
		trustProxy  = flag.Bool("ws_trust_proxy", false, "take websocket client addresses from X-Forwarded-For")
		snapKeep    = flag.Int("snapshot_keep", 24, "number of snapshots kept in the data dir (0 keeps all)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*configDir, "config.yaml")
	}
	ap := strings.TrimSpace(*areasPath)
	if ap == "" {
		ap = filepath.Join(*configDir, "areas.yaml")
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(cp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", cp)
		tune = tuning.Defaults()
	}
	if _, err := os.Stat(ap); os.IsNotExist(err) {
		logger.Printf("areas not found (%s); using a single default area", ap)
		ap = ""
	}
	areaCfg, err := areas.Load(ap)
	if err != nil {
		logger.Fatalf("load areas: %v", err)
	}
	logger.Printf("loaded %d characters, %d songs, %d areas", len(cats.Characters.Names), len(cats.Music.ByName), len(areaCfg.Areas))

	_ = os.MkdirAll(*dataDir, 0o755)
	rt, err := openRuntime(*dataDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open runtime stores: %v", err)
	}
	defer rt.Close()

	w, err := world.New(world.Config{
		Tuning:   tune,
		Areas:    areaCfg,
		Catalogs: cats,
		Bans:     rt.bans,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetChatLogger(rt.chat)
	w.SetAuditLogger(rt.audit)

	snapDir := filepath.Join(*dataDir, "snapshots")
	if *loadLatest {
		if p := snapshot.Latest(snapDir); p != "" {
			snap, err := snapshot.ReadSnapshot(p)
			if err != nil {
				logger.Fatalf("read snapshot: %v", err)
			}
			n := w.ImportSnapshot(snap)
			logger.Printf("restored %d areas from snapshot=%s", n, filepath.Base(p))
		}
	}

	// ctx ends on a signal; worldCtx ends after the final snapshot is taken.
	ctx, cancel := signalContext()
	defer cancel()
	worldCtx, stopWorld := context.WithCancel(context.Background())
	defer stopWorld()

	go func() {
		if err := w.Run(worldCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	listen := strings.TrimSpace(*addr)
	if listen == "" {
		listen = net.JoinHostPort("", strconv.Itoa(tune.Port))
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	tcpSrv := tcp.NewServer(w, logger)
	go func() {
		if err := tcpSrv.Serve(worldCtx, ln); err != nil {
			logger.Printf("tcp: %v", err)
			cancel()
		}
	}()
	logger.Printf("listening on %s (tcp)", ln.Addr())

	var dir *directory.Client
	if tune.Directory.Enabled {
		dir = directory.New(directory.Config{
			Addr:        tune.Directory.Address(),
			Port:        tune.Port,
			Name:        tune.Directory.Name,
			Description: tune.Directory.Description,
			Version:     world.SoftwareVersion,
		}, nil, nil, logger)
		go dir.Run(worldCtx)
	}

	if *watchConfig {
		go func() {
			err := tuning.Watch(ctx, cp, func(t tuning.Tuning) {
				rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
				defer rcancel()
				if err := w.Reconfigure(rctx, t); err != nil {
					logger.Printf("reconfigure: %v", err)
				}
			}, logger)
			if err != nil {
				logger.Printf("%v", err)
			}
		}()
	}

	var servers []*http.Server
	if a := strings.TrimSpace(*wsAddr); a != "" {
		wsSrv := ws.NewServer(w, logger)
		wsSrv.TrustProxy = *trustProxy
		mux := http.NewServeMux()
		mux.HandleFunc("/", wsSrv.Handler())
		servers = append(servers, serveHTTP(a, mux, "ws", logger))
	}
	if a := strings.TrimSpace(*httpAddr); a != "" {
		mux := newAdminMux(adminDeps{
			world:    w,
			bans:     rt.bans,
			dir:      dir,
			snapDir:  snapDir,
			snapKeep: *snapKeep,
			logger:   logger,
		})
		servers = append(servers, serveHTTP(a, mux, "http", logger))
	}

	<-ctx.Done()
	logger.Printf("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	for _, srv := range servers {
		_ = srv.Shutdown(sctx)
	}
	if path, err := writeSnapshot(sctx, w, snapDir, *snapKeep, logger); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot=%s", filepath.Base(path))
	}
	stopWorld()
	select {
	case <-w.Done():
	case <-sctx.Done():
	}
}

func serveHTTP(addr string, h http.Handler, name string, logger *log.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("listening on %s (%s)", addr, name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("%s ListenAndServe: %v", name, err)
		}
	}()
	return srv
}

// writeSnapshot saves the current area state under dir, copies the first
// snapshot of each day into <dir>/../archives and prunes dir down to keep.
func writeSnapshot(ctx context.Context, w *world.World, dir string, keep int, logger *log.Logger) (string, error) {
	snap, err := w.ExportSnapshot(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, snapshot.FileName(snap.Header))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if day, _, ok, err := archive.ArchiveDailySnapshot(filepath.Dir(dir), path, snap); err != nil {
		logger.Printf("archive snapshot: %v", err)
	} else if ok {
		logger.Printf("archived snapshot for %s", day)
	}
	if n, err := archive.Prune(dir, keep); err != nil {
		logger.Printf("prune snapshots: %v", err)
	} else if n > 0 {
		logger.Printf("pruned %d old snapshots", n)
	}
	return path, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
