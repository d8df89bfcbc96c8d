// Package capture collects stream URLs observed on the browser's network
// while episodes play. URLs accumulate in an append-only log; callers take a
// mark before triggering playback and read back everything recorded since.
package capture

import (
	"log/slog"
	"strings"
	"sync"

	"vodgrab/internal/config"
	"vodgrab/internal/entity"
	"vodgrab/internal/observability"
	"vodgrab/pkg/urls"
)

// Log is an append-only, mutex-guarded record of captured streams. Entries
// are never removed during a run; marks index into the log by position.
type Log struct {
	mu      sync.Mutex
	entries []entity.CapturedStream
}

// Append records url at the next sequence position.
func (l *Log) Append(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entity.CapturedStream{
		URL: url,
		Seq: len(l.entries),
	})
}

// Mark returns the current log position. URLs appended afterwards are
// visible through Since(mark).
func (l *Log) Mark() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Since returns the URLs appended at or after mark, in observation order.
// An out-of-range mark yields nil.
func (l *Log) Since(mark int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mark < 0 || mark >= len(l.entries) {
		return nil
	}

	out := make([]string, 0, len(l.entries)-mark)
	for _, e := range l.entries[mark:] {
		out = append(out, e.URL)
	}

	return out
}

// Len returns the number of captured entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// RequestObserver emits every request URL the browser sees to a callback.
// The callback runs on the browser's event goroutine.
type RequestObserver interface {
	ObserveRequests(fn func(url string))
}

// Session filters observed network traffic down to stream URLs and records
// them in its log.
type Session struct {
	log     *slog.Logger
	cfg     config.Capture
	urls    Log
	metrics *observability.Metrics

	attach sync.Once
}

// NewSession creates a capture session with the given filter configuration.
func NewSession(log *slog.Logger, cfg config.Capture, metrics *observability.Metrics) *Session {
	return &Session{
		log:     log.With(slog.String("package", "capture")),
		cfg:     cfg,
		metrics: metrics,
	}
}

// Attach subscribes to the observer's request events. Only the first call
// has effect; a session observes exactly one browser.
func (s *Session) Attach(obs RequestObserver) {
	s.attach.Do(func() {
		obs.ObserveRequests(s.Observe)
	})
}

// Observe inspects one request URL and appends it to the log when it looks
// like a stream. Safe for concurrent use.
func (s *Session) Observe(rawURL string) {
	// Players also fire blob: and data: requests; only http(s) can be
	// handed to the downloader.
	if !urls.IsURLValid(rawURL) {
		return
	}

	lower := strings.ToLower(rawURL)

	if s.cfg.StreamIndicator != "" && !strings.Contains(lower, strings.ToLower(s.cfg.StreamIndicator)) {
		return
	}

	for _, kw := range s.cfg.SkipKeywords {
		if strings.Contains(lower, kw) {
			if s.metrics != nil {
				s.metrics.SkippedURLs.Inc()
			}

			return
		}
	}

	s.urls.Append(rawURL)

	if s.metrics != nil {
		s.metrics.CapturedURLs.Inc()
	}

	s.log.Debug("captured stream url", "url", rawURL)
}

// Mark returns the current position in the capture log.
func (s *Session) Mark() int {
	return s.urls.Mark()
}

// Since returns stream URLs captured at or after mark.
func (s *Session) Since(mark int) []string {
	return s.urls.Since(mark)
}
