package logroute

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	json "github.com/goccy/go-json"
)

func TestFileTransportPlain(t *testing.T) {
	var buf bytes.Buffer

	ft, err := NewFileTransport(&buf)
	if err != nil {
		t.Fatalf("NewFileTransport: %v", err)
	}

	p := New(WithClock(testClock), WithTransports(ft))
	l := p.Logger("app")

	l.Info("hello", "world")
	l.Warn("slow")

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %q", len(lines), buf.String())
	}

	var row map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("first line does not parse: %v", err)
	}
	if row["preview"] != "hello world" || row["level"] != "info" || row["namespace"] != "app" {
		t.Errorf("row = %v", row)
	}
}

func TestFileTransportCompressed(t *testing.T) {
	var buf bytes.Buffer

	ft, err := NewFileTransport(&buf, WithCompression())
	if err != nil {
		t.Fatalf("NewFileTransport: %v", err)
	}

	ft.Deliver(&Record{Time: testClock(), Level: LevelError, Namespace: "db", Preview: "boom"})

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := zstd.NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer r.Close()

	plain, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	var row map[string]any
	if err := json.Unmarshal(bytes.TrimRight(plain, "\n"), &row); err != nil {
		t.Fatalf("decompressed line does not parse: %v", err)
	}
	if row["preview"] != "boom" {
		t.Errorf("row = %v", row)
	}
}

func TestFileTransportClosed(t *testing.T) {
	var buf bytes.Buffer

	ft, err := NewFileTransport(&buf)
	if err != nil {
		t.Fatalf("NewFileTransport: %v", err)
	}

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ft.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	ft.Deliver(&Record{Time: testClock(), Level: LevelInfo, Namespace: "app", Preview: "late"})

	if buf.Len() != 0 {
		t.Errorf("delivery after close wrote %q", buf.String())
	}
}

func TestOpenFileTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.ndjson")

	ft, err := OpenFileTransport(path)
	if err != nil {
		t.Fatalf("OpenFileTransport: %v", err)
	}

	ft.Deliver(&Record{Time: testClock(), Level: LevelInfo, Namespace: "app", Preview: "persisted"})

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"preview":"persisted"`) {
		t.Errorf("file contents = %q", data)
	}

	// Opening again appends rather than truncating.
	ft, err = OpenFileTransport(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	ft.Deliver(&Record{Time: testClock(), Level: LevelInfo, Namespace: "app", Preview: "appended"})

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines after reopen, got %d", len(lines))
	}
}
