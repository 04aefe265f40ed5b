package record

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Recorder writes messages to a record file in the format Open reads.
type Recorder struct {
	file *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
	enc  *json.Encoder

	count  uint64
	lastNs int64

	mu     sync.Mutex
	closed bool
}

// Create truncates or creates path. Paths ending in ".gz" are compressed.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	r := &Recorder{file: f}
	var dst io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		r.gz = gzip.NewWriter(f)
		dst = r.gz
	}
	r.buf = bufio.NewWriter(dst)
	r.enc = json.NewEncoder(r.buf)
	return r, nil
}

// Record appends one message. Timestamps must not go backwards.
func (r *Recorder) Record(topic string, timestampNs int64, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}
	if r.count > 0 && timestampNs < r.lastNs {
		return fmt.Errorf("timestamp %d precedes previous %d", timestampNs, r.lastNs)
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", topic, err)
	}
	if err := r.enc.Encode(line{Topic: topic, T: timestampNs, Msg: msg}); err != nil {
		return fmt.Errorf("failed to write %s: %w", topic, err)
	}
	r.count++
	r.lastNs = timestampNs
	return nil
}

// RecordMessage appends m.
func (r *Recorder) RecordMessage(m Message) error {
	return r.Record(m.Topic, m.Timestamp, m.Payload)
}

// Count returns the number of messages written.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.buf.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush record: %w", err)
	}
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			r.file.Close()
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	return r.file.Close()
}
