package protocol

import (
	"bytes"
	"errors"
	"strings"
)

// MaxBuffer bounds the bytes a connection may hold without completing a frame.
const MaxBuffer = 8192

var (
	ErrBufferOverflow = errors.New("protocol: frame buffer exceeds limit")
	ErrShortFrame     = errors.New("protocol: frame shorter than 2 characters")
)

var delim = []byte(Delimiter)

// Decoder accumulates the byte stream of one connection and splits it into
// frames. Bytes are buffered raw and decoded per frame, so a multi-byte rune
// split across reads decodes the same as one delivered whole. Invalid UTF-8
// is dropped.
//
// A Decoder is not safe for concurrent use; each connection owns one.
type Decoder struct {
	buf []byte
	max int
}

func NewDecoder() *Decoder { return &Decoder{max: MaxBuffer} }

// Buffered reports how many bytes are waiting for a delimiter.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Feed appends chunk and returns every frame completed so far. A non-nil
// error means the connection must be closed; frames returned alongside it
// precede the violation and may still be processed.
func (d *Decoder) Feed(chunk []byte) ([]string, error) {
	d.buf = append(d.buf, chunk...)

	var frames []string
	for {
		i := bytes.Index(d.buf, delim)
		if i < 0 {
			break
		}
		msg := strings.ToValidUTF8(string(d.buf[:i]), "")
		d.buf = d.buf[i+len(delim):]
		if len([]rune(msg)) < 2 {
			d.compact()
			return frames, ErrShortFrame
		}
		frames = append(frames, msg)
	}

	if string(d.buf) == LegacyAskChars {
		d.buf = d.buf[:0]
		frames = append(frames, LegacyAskChars)
	}

	d.compact()
	limit := d.max
	if limit <= 0 {
		limit = MaxBuffer
	}
	if len(d.buf) > limit {
		return frames, ErrBufferOverflow
	}
	return frames, nil
}

// compact drops the consumed prefix so the backing array does not grow with
// the lifetime of the connection.
func (d *Decoder) compact() {
	if len(d.buf) == 0 {
		d.buf = nil
		return
	}
	if cap(d.buf) > 2*MaxBuffer && len(d.buf) < cap(d.buf)/4 {
		d.buf = append([]byte(nil), d.buf...)
	}
}
