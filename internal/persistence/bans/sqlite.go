package bans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one banned address.
type Entry struct {
	IP       string    `json:"ip"`
	Reason   string    `json:"reason"`
	BannedAt time.Time `json:"banned_at"`
}

// SQLiteStore persists bans in a sqlite file and serves lookups from an
// in-memory copy, so IsBanned never touches disk.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu    sync.RWMutex
	cache map[string]Entry
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, now: time.Now, cache: map[string]Entry{}}
	if err := s.reload(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS bans (
		ip TEXT PRIMARY KEY,
		reason TEXT NOT NULL,
		banned_at INTEGER NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) reload(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, reason, banned_at FROM bans`)
	if err != nil {
		return err
	}
	defer rows.Close()
	cache := map[string]Entry{}
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.IP, &e.Reason, &ms); err != nil {
			return err
		}
		e.BannedAt = time.UnixMilli(ms).UTC()
		cache[e.IP] = e
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) IsBanned(ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[ip]
	return ok
}

// Ban records ip. Banning an address twice keeps the newer reason.
func (s *SQLiteStore) Ban(ip, reason string) error {
	if ip == "" {
		return errors.New("bans: empty ip")
	}
	e := Entry{IP: ip, Reason: reason, BannedAt: s.now().UTC()}
	_, err := s.db.Exec(
		`INSERT INTO bans(ip, reason, banned_at) VALUES(?,?,?)
		 ON CONFLICT(ip) DO UPDATE SET reason=excluded.reason, banned_at=excluded.banned_at`,
		e.IP, e.Reason, e.BannedAt.UnixMilli())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[ip] = e
	s.mu.Unlock()
	return nil
}

// Remove lifts a ban. It reports whether ip was banned.
func (s *SQLiteStore) Remove(ip string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM bans WHERE ip=?`, ip)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	s.mu.Lock()
	delete(s.cache, ip)
	s.mu.Unlock()
	return n > 0, nil
}

// List returns every ban ordered by address.
func (s *SQLiteStore) List() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.cache))
	for _, e := range s.cache {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
