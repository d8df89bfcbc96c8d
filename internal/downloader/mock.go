package downloader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Mock is a Fetcher fake for tests. By default it creates the output file
// so downstream steps can see it; FetchErr or per-URL Errs force failures.
type Mock struct {
	mu sync.Mutex

	// FetchErr fails every fetch; Errs fails specific URLs.
	FetchErr error
	Errs     map[string]error

	// Fetched records (url, outputPath) pairs in call order.
	Fetched [][2]string
}

var _ Fetcher = (*Mock)(nil)

func (m *Mock) Fetch(ctx context.Context, url, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.Fetched = append(m.Fetched, [2]string{url, outputPath})
	m.mu.Unlock()

	if m.FetchErr != nil {
		return m.FetchErr
	}

	if err, ok := m.Errs[url]; ok {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(outputPath, []byte("stream"), 0o644)
}

// Calls returns the number of fetches made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Fetched)
}
