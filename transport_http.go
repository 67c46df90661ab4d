package logroute

import (
	"bytes"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	json "github.com/goccy/go-json"
)

// wireRecord is the shape a record takes on the wire and on disk: the
// BufferedEntry fields plus the redacted arguments and the stack when one
// was captured.
type wireRecord struct {
	Time      string `json:"time"`
	Level     string `json:"level"`
	Namespace string `json:"namespace"`
	Preview   string `json:"preview"`
	Args      []any  `json:"args,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// encodeWireRecord marshals rec for delivery. Arguments that cannot be
// serialized (functions, channels) are dropped from the row rather than
// failing it; the preview always survives.
func encodeWireRecord(rec *Record) []byte {
	row := wireRecord{
		Time:      rec.Time.Format(time.RFC3339Nano),
		Level:     string(rec.Level),
		Namespace: rec.Namespace,
		Preview:   rec.Preview,
		Args:      rec.Redacted,
		Stack:     rec.Stack,
	}

	data, err := json.Marshal(row)
	if err != nil {
		row.Args = nil

		data, err = json.Marshal(row)
		if err != nil {
			return nil
		}
	}

	return data
}

// HTTPTransport ships accepted records to a collector endpoint in JSON
// batches. Deliver never blocks the logging call: rows are queued and a
// background loop flushes them by size and on a fixed interval. When the
// queue is full, rows are dropped.
type HTTPTransport struct {
	url        string
	apiKey     string
	client     *http.Client
	instanceID string

	batchSize     int
	flushInterval time.Duration
	queueSize     int

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithAPIKey sets the bearer token sent with every batch.
func WithAPIKey(key string) HTTPOption {
	return func(t *HTTPTransport) {
		t.apiKey = key
	}
}

// WithHTTPClient overrides the HTTP client used for delivery.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithBatchSize sets how many rows trigger an early flush. Values below 1
// are ignored.
func WithBatchSize(n int) HTTPOption {
	return func(t *HTTPTransport) {
		if n >= 1 {
			t.batchSize = n
		}
	}
}

// WithFlushInterval sets the periodic flush interval. Non-positive values
// are ignored.
func WithFlushInterval(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.flushInterval = d
		}
	}
}

// WithQueueSize sets the capacity of the internal row queue. Values below
// 1 are ignored.
func WithQueueSize(n int) HTTPOption {
	return func(t *HTTPTransport) {
		if n >= 1 {
			t.queueSize = n
		}
	}
}

// NewHTTPTransport creates a transport posting batches to serverURL.
// The background flush loop starts with the first delivered record.
func NewHTTPTransport(serverURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		url:           strings.TrimRight(serverURL, "/"),
		client:        &http.Client{Timeout: 5 * time.Second},
		instanceID:    uuid.New().String(),
		batchSize:     100,
		flushInterval: time.Second,
		queueSize:     10000,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.queue = make(chan []byte, t.queueSize)

	return t
}

// Deliver queues rec for batched delivery and returns immediately. Rows
// are dropped, with a note on stderr, when the queue is full.
func (t *HTTPTransport) Deliver(rec *Record) {
	t.start()

	data := encodeWireRecord(rec)
	if data == nil {
		return
	}

	select {
	case t.queue <- data:
	default:
		log.Printf("logroute: http transport queue full, dropping record")
	}
}

// start launches the flush loop. Calling it any number of times creates
// exactly one loop.
func (t *HTTPTransport) start() {
	t.startOnce.Do(func() {
		t.wg.Add(1)

		go t.runLoop()
	})
}

// Close flushes the queued rows and stops the background loop. It is
// idempotent; closing a transport that never delivered is a no-op.
func (t *HTTPTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})

	t.wg.Wait()
}

func (t *HTTPTransport) runLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	var batch [][]byte

	send := func() {
		if len(batch) == 0 {
			return
		}

		t.post(batch)

		batch = nil
	}

	for {
		select {
		case data := <-t.queue:
			batch = append(batch, data)

			if len(batch) >= t.batchSize {
				send()
			}
		case <-ticker.C:
			send()
		case <-t.done:
			// Flush whatever is still queued before exiting.
			for {
				select {
				case data := <-t.queue:
					batch = append(batch, data)
				default:
					send()

					return
				}
			}
		}
	}
}

// post encodes the batch as a JSON array and sends it. Delivery errors go
// to stderr; a logging facility has nowhere better to report them.
func (t *HTTPTransport) post(batch [][]byte) {
	var buf bytes.Buffer

	buf.WriteByte('[')

	for i, b := range batch {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.Write(b)
	}

	buf.WriteByte(']')

	req, err := http.NewRequest(http.MethodPost, t.url+"/api/ingest/batch", &buf)
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Instance-ID", t.instanceID)

	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("logroute: http transport send error: %v", err)

		return
	}

	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("logroute: http transport send failed: HTTP %d", resp.StatusCode)
	}
}
