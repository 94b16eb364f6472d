package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"courtroom.ai/internal/sim/world"
)

const (
	ChatDir  = "chat"
	AuditDir = "audit"

	hourLayout = "2006-01-02-15"
)

// segment is one open hourly file. Each open appends a fresh zstd frame, so
// reopening an hour that already has a file keeps earlier lines readable.
type segment struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
}

func openSegment(path, hour string) (*segment, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, enc: enc}, nil
}

// writeLine emits line as its own zstd block so a reader tailing the open
// file sees it immediately.
func (s *segment) writeLine(line []byte) error {
	if _, err := s.enc.Write(append(line, '\n')); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	err := s.enc.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// HourlyLog appends JSON lines to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
// The file is chosen by the timestamp of each entry, not the wall clock, so
// entries stamped by the world clock land in the hour they describe.
type HourlyLog struct {
	dir    string
	prefix string

	mu  sync.Mutex
	cur *segment
}

func NewHourlyLog(dir, prefix string) *HourlyLog {
	return &HourlyLog{dir: dir, prefix: prefix}
}

func (l *HourlyLog) Path(at time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl.zst", l.prefix, at.UTC().Format(hourLayout)))
}

func (l *HourlyLog) Append(at time.Time, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	hour := at.UTC().Format(hourLayout)
	if l.cur == nil || l.cur.hour != hour {
		if err := l.closeLocked(); err != nil {
			return err
		}
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return err
		}
		seg, err := openSegment(l.Path(at), hour)
		if err != nil {
			return err
		}
		l.cur = seg
	}
	return l.cur.writeLine(line)
}

func (l *HourlyLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *HourlyLog) closeLocked() error {
	if l.cur == nil {
		return nil
	}
	err := l.cur.close()
	l.cur = nil
	return err
}

// ChatLogger records IC, OOC, global and modcall lines.
type ChatLogger struct{ log *HourlyLog }

func NewChatLogger(logDir string) *ChatLogger {
	return &ChatLogger{log: NewHourlyLog(filepath.Join(logDir, ChatDir), "chat")}
}

func (l *ChatLogger) WriteChat(e world.ChatEntry) error { return l.log.Append(e.At, e) }
func (l *ChatLogger) Close() error                      { return l.log.Close() }

// AuditLogger records moderator actions.
type AuditLogger struct{ log *HourlyLog }

func NewAuditLogger(logDir string) *AuditLogger {
	return &AuditLogger{log: NewHourlyLog(filepath.Join(logDir, AuditDir), "audit")}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.log.Append(e.At, e) }
func (l *AuditLogger) Close() error                        { return l.log.Close() }
