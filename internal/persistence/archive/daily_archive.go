package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"courtroom.ai/internal/persistence/snapshot"
)

type DailyArchiveMeta struct {
	Day       string `json:"day"`
	Snapshot  string `json:"snapshot"`
	TakenAt   string `json:"taken_at"`
	Areas     int    `json:"areas"`
	Evidence  int    `json:"evidence"`
	CreatedAt string `json:"created_at"`
}

// ArchiveDailySnapshot copies the first snapshot of each UTC day into
// `dataDir/archives/<YYYY-MM-DD>/`. Later snapshots of the same day are
// ignored and archived=false is returned.
func ArchiveDailySnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (day string, archivedPath string, archived bool, err error) {
	taken := time.UnixMilli(snap.Header.CreatedAt).UTC()
	day = taken.Format(time.DateOnly)

	archiveDir := filepath.Join(dataDir, "archives", day)
	if _, err := os.Stat(filepath.Join(archiveDir, "meta.json")); err == nil {
		return day, "", false, nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", "", false, err
	}

	evidence := 0
	for _, a := range snap.Areas {
		evidence += len(a.Evidence)
	}
	meta := DailyArchiveMeta{
		Day:       day,
		Snapshot:  filepath.Base(dst),
		TakenAt:   taken.Format(time.RFC3339Nano),
		Areas:     len(snap.Areas),
		Evidence:  evidence,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return day, dst, true, nil
}

// Prune removes all but the newest keep snapshots from dir and returns how
// many were removed. keep <= 0 disables pruning.
func Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	type snap struct {
		name string
		ms   int64
	}
	var all []snap
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		all = append(all, snap{name, ms})
	}
	if len(all) <= keep {
		return 0, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ms > all[j].ms })
	removed := 0
	for _, s := range all[keep:] {
		if err := os.Remove(filepath.Join(dir, s.name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
