package record

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrDecode marks a malformed log entry. The log is assumed well-formed,
// so callers treat it as fatal for the run.
var ErrDecode = errors.New("record: decode failed")

// maxLineBytes bounds a single JSON line; dense perception frames can be
// several megabytes.
const maxLineBytes = 64 * 1024 * 1024

// Reader yields messages in record order. Next returns io.EOF after the
// last message.
type Reader interface {
	Next() (Message, error)
	Close() error
}

// line is the on-disk envelope.
type line struct {
	Topic string          `json:"topic"`
	T     int64           `json:"t"`
	Msg   json.RawMessage `json:"msg"`
}

// Replayer reads a record file written by Recorder.
type Replayer struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	topics  map[string]bool
	lineNo  int
}

// Open opens a record file for sequential replay. When topics are given
// only those are returned. Files ending in ".gz" are decompressed.
func Open(path string, topics ...string) (*Replayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record: %w", err)
	}

	r := &Replayer{path: path, file: f}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
		}
		r.gz = gz
		src = gz
	}

	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if len(topics) > 0 {
		r.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			r.topics[t] = true
		}
	}
	return r, nil
}

// Path returns the file being replayed.
func (r *Replayer) Path() string { return r.path }

// Next returns the next decodable message that passes the topic filter.
func (r *Replayer) Next() (Message, error) {
	for r.scanner.Scan() {
		r.lineNo++
		raw := r.scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		var env line
		if err := json.Unmarshal(raw, &env); err != nil {
			return Message{}, fmt.Errorf("%w: %s line %d: %v", ErrDecode, r.path, r.lineNo, err)
		}
		if r.topics != nil && !r.topics[env.Topic] {
			continue
		}
		payload := newPayload(env.Topic)
		if payload == nil {
			continue
		}
		if len(env.Msg) == 0 {
			return Message{}, fmt.Errorf("%w: %s line %d: missing msg for %s", ErrDecode, r.path, r.lineNo, env.Topic)
		}
		if err := json.Unmarshal(env.Msg, payload); err != nil {
			return Message{}, fmt.Errorf("%w: %s line %d: %s: %v", ErrDecode, r.path, r.lineNo, env.Topic, err)
		}
		return Message{Topic: env.Topic, Timestamp: env.T, Payload: payload}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrDecode, r.path, err)
	}
	return Message{}, io.EOF
}

// Close releases the underlying file.
func (r *Replayer) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// ReadAll drains r into a slice.
func ReadAll(r Reader) ([]Message, error) {
	var out []Message
	for {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
}

// SliceReader replays an in-memory message list.
type SliceReader struct {
	msgs []Message
	pos  int
}

// NewSliceReader wraps msgs, which must already be in record order.
func NewSliceReader(msgs []Message) *SliceReader {
	return &SliceReader{msgs: msgs}
}

// Next implements Reader.
func (s *SliceReader) Next() (Message, error) {
	if s.pos >= len(s.msgs) {
		return Message{}, io.EOF
	}
	m := s.msgs[s.pos]
	s.pos++
	return m, nil
}

// Consumed is the number of messages handed out so far.
func (s *SliceReader) Consumed() int { return s.pos }

// Close implements Reader.
func (s *SliceReader) Close() error { return nil }
