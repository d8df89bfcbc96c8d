// Package downloader fetches stream URLs to local files via yt-dlp, with
// retries and live progress reporting.
package downloader

import "context"

// ProgressUpdate is one parsed progress line from the download tool.
type ProgressUpdate struct {
	Percent float64
	Rate    string
	ETA     string
}

// ProgressFunc receives progress updates during a fetch. It runs on the
// reader goroutine and must not block.
type ProgressFunc func(ProgressUpdate)

// Fetcher downloads a single stream URL to outputPath.
type Fetcher interface {
	Fetch(ctx context.Context, url, outputPath string) error
}
