package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"courtroom.ai/internal/persistence/bans"
	persistlog "courtroom.ai/internal/persistence/log"
)

// runtimeStores are the on-disk side effects of a running server. None of
// them affect protocol handling when they fail.
type runtimeStores struct {
	bans  bans.Store
	chat  *persistlog.ChatLogger
	audit *persistlog.AuditLogger
}

func openRuntime(dataDir string, disableDB bool, logger *log.Logger) (*runtimeStores, error) {
	store, err := openBanStore(dataDir, disableDB, logger)
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(dataDir, "logs")
	return &runtimeStores{
		bans:  store,
		chat:  persistlog.NewChatLogger(logDir),
		audit: persistlog.NewAuditLogger(logDir),
	}, nil
}

func openBanStore(dataDir string, disableDB bool, logger *log.Logger) (bans.Store, error) {
	if disableDB {
		logger.Printf("ban database disabled; bans last until restart")
		return bans.NewMemory(), nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("AO_BAN_BACKEND")))
	switch backend {
	case "", "sqlite":
		return bans.OpenSQLite(banDBPath(dataDir))
	case "memory", "none", "off":
		return bans.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported AO_BAN_BACKEND: %s", backend)
	}
}

func banDBPath(dataDir string) string { return filepath.Join(dataDir, "db", "bans.sqlite") }

func (r *runtimeStores) Close() {
	_ = r.chat.Close()
	_ = r.audit.Close()
	_ = r.bans.Close()
}
