package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version   int   `json:"version"`
	CreatedAt int64 `json:"created_at"` // unix millis
	Areas     int   `json:"areas"`
}

// SnapshotV1 is the persisted per-area state. Connections and music loops
// are not carried across restarts.
type SnapshotV1 struct {
	Header Header   `json:"header"`
	Areas  []AreaV1 `json:"areas"`
}

type AreaV1 struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Background string       `json:"background"`
	BGLocked   bool         `json:"bg_locked"`
	Status     string       `json:"status"`
	DefHP      int          `json:"def_hp"`
	ProHP      int          `json:"pro_hp"`
	CaseMaster string       `json:"case_master"`
	Document   string       `json:"document"`
	Evidence   []EvidenceV1 `json:"evidence,omitempty"`
}

type EvidenceV1 struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func NewHeader(now time.Time, areas int) Header {
	return Header{Version: Version, CreatedAt: now.UnixMilli(), Areas: areas}
}

// FileName is the conventional name for a snapshot taken at a header's time.
func FileName(h Header) string { return fmt.Sprintf("%d.snap.zst", h.CreatedAt) }

// WriteSnapshot stores snap as a JSON header line followed by a gob body,
// all inside one zstd stream. The file is written to a temp name and then
// renamed so readers never see a partial snapshot.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// Latest returns the newest snapshot file in dir, or "" if there is none.
func Latest(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		ms   int64
		name string
	}
	var cands []cand
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{ms: ms, name: name})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ms > cands[j].ms })
	return filepath.Join(dir, cands[0].name)
}
