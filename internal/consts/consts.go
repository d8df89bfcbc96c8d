// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultNavigationTimeout is the default timeout for a single page navigation.
	DefaultNavigationTimeout = 45 * time.Second
	// DefaultSettleWindow is how long the capture session waits for stream
	// requests after playback starts.
	DefaultSettleWindow = 8 * time.Second
	// DefaultFetchRetries is the default number of download attempts per stream.
	DefaultFetchRetries = 5
	// DefaultBackoffBase is the base delay for exponential download backoff.
	DefaultBackoffBase = 5 * time.Second
	// DefaultRunRetries is the default number of run-level retries for
	// infrastructure failures.
	DefaultRunRetries = 3
	// DefaultRunRetryDelay is the pause between run-level retries.
	DefaultRunRetryDelay = 5 * time.Second
)

// Binary identifiers resolved by the dependency manager.
const (
	// BinYTdlp is the yt-dlp binary identifier.
	BinYTdlp = "yt-dlp"
	// BinFFmpeg is the ffmpeg binary identifier.
	BinFFmpeg = "ffmpeg"
	// BinFFprobe is the ffprobe binary identifier.
	BinFFprobe = "ffprobe"
)

// File suffixes for intermediate download artifacts.
const (
	// SuffixVideoTemp marks a video-only intermediate file.
	SuffixVideoTemp = ".v.mp4"
	// SuffixAudioTemp marks an audio-only intermediate file.
	SuffixAudioTemp = ".a.m4a"
	// SuffixOutput is the final merged container extension.
	SuffixOutput = ".mp4"
)
