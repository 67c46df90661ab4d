package logroute

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FileTransport appends accepted records to a writer as NDJSON, one
// wire-format row per line, optionally behind a zstd stream. Rows are
// written synchronously under a mutex, so lines never interleave.
type FileTransport struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *zstd.Encoder
	owned  io.Closer
	closed bool

	compress bool
}

// FileOption configures a FileTransport.
type FileOption func(*FileTransport)

// WithCompression wraps the output in a zstd stream.
func WithCompression() FileOption {
	return func(t *FileTransport) {
		t.compress = true
	}
}

// NewFileTransport writes rows to w. With compression enabled the stream
// is only complete after Close.
func NewFileTransport(w io.Writer, opts ...FileOption) (*FileTransport, error) {
	t := &FileTransport{w: w}

	for _, opt := range opts {
		opt(t)
	}

	if t.compress {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}

		t.enc = enc
		t.w = enc
	}

	return t, nil
}

// OpenFileTransport creates or appends the file at path and writes rows
// to it. The file is owned by the transport and closed by Close.
func OpenFileTransport(path string, opts ...FileOption) (*FileTransport, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	t, err := NewFileTransport(f, opts...)
	if err != nil {
		f.Close()

		return nil, err
	}

	t.owned = f

	return t, nil
}

// Deliver writes rec as one NDJSON line. Deliveries after Close are
// silently dropped.
func (t *FileTransport) Deliver(rec *Record) {
	data := encodeWireRecord(rec)
	if data == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	if _, err := t.w.Write(append(data, '\n')); err != nil {
		log.Printf("logroute: file transport write error: %v", err)
	}
}

// Close flushes the zstd stream, when there is one, and closes an owned
// file. It is idempotent.
func (t *FileTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	var err error

	if t.enc != nil {
		err = t.enc.Close()
	}

	if t.owned != nil {
		if cerr := t.owned.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
