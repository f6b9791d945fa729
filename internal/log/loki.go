package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// LokiConfig contains configuration for the Loki writer.
type LokiConfig struct {
	Endpoint      string            // Loki push endpoint URL
	Labels        map[string]string // Stream labels
	BatchSize     int               // Number of log entries per batch
	FlushInterval string            // Flush interval (e.g., "5s")
}

// LokiWriter implements io.Writer and ships log lines to Grafana Loki
// in batches, flushed when full or on a timer.
type LokiWriter struct {
	endpoint      string
	labels        map[string]string
	batchSize     int
	flushInterval time.Duration
	httpClient    *http.Client

	mu      sync.Mutex
	batch   []logEntry
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type logEntry struct {
	timestamp time.Time
	line      string
}

// lokiPushRequest is the Loki push API body.
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewLokiWriter creates a Loki writer and starts its background
// flusher.
func NewLokiWriter(cfg LokiConfig) (*LokiWriter, error) {
	flushInterval := 5 * time.Second
	if cfg.FlushInterval != "" {
		duration, err := time.ParseDuration(cfg.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid flush interval: %w", err)
		}
		flushInterval = duration
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	labels := cfg.Labels
	if labels == nil {
		labels = make(map[string]string)
	}
	if _, ok := labels["job"]; !ok {
		labels["job"] = "aes67-agent"
	}

	lw := &LokiWriter{
		endpoint:      cfg.Endpoint,
		labels:        labels,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		batch:         make([]logEntry, 0, batchSize),
		closeCh:       make(chan struct{}),
	}

	lw.wg.Add(1)
	go lw.flusher()

	return lw, nil
}

// Write implements io.Writer. Flush failures never fail the write;
// logging must not take the caller down.
func (lw *LokiWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.closed {
		return 0, fmt.Errorf("loki writer is closed")
	}

	lw.batch = append(lw.batch, logEntry{timestamp: time.Now(), line: string(p)})
	if len(lw.batch) >= lw.batchSize {
		_ = lw.flushLocked()
	}
	return len(p), nil
}

// Close stops the background flusher and pushes any batched entries.
func (lw *LokiWriter) Close() error {
	lw.mu.Lock()
	if lw.closed {
		lw.mu.Unlock()
		return nil
	}
	lw.closed = true
	err := lw.flushLocked()
	lw.mu.Unlock()

	close(lw.closeCh)
	lw.wg.Wait()
	return err
}

func (lw *LokiWriter) flusher() {
	defer lw.wg.Done()

	ticker := time.NewTicker(lw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lw.mu.Lock()
			if !lw.closed && len(lw.batch) > 0 {
				_ = lw.flushLocked()
			}
			lw.mu.Unlock()
		case <-lw.closeCh:
			return
		}
	}
}

// flushLocked sends the batch to Loki. Must be called with lw.mu held.
func (lw *LokiWriter) flushLocked() error {
	if len(lw.batch) == 0 {
		return nil
	}

	values := make([][]string, len(lw.batch))
	for i, entry := range lw.batch {
		values[i] = []string{
			fmt.Sprintf("%d", entry.timestamp.UnixNano()),
			entry.line,
		}
	}

	body, err := json.Marshal(lokiPushRequest{
		Streams: []lokiStream{{Stream: lw.labels, Values: values}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal loki request: %w", err)
	}

	if err := lw.push(body); err != nil {
		return err
	}

	lw.batch = lw.batch[:0]
	return nil
}

// push posts one batch, retrying transient failures with backoff.
func (lw *LokiWriter) push(body []byte) error {
	const maxRetries = 3
	delay := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}

		resp, err := lw.httpClient.Post(lw.endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("loki push returned status %d", resp.StatusCode)
		// Client errors won't improve with retries.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return lastErr
		}
	}
	return fmt.Errorf("loki push failed after %d attempts: %w", maxRetries, lastErr)
}
