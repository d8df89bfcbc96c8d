// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"vodgrab/internal/consts"
)

// Config holds the application configuration.
type Config struct {
	App        App
	Dir        Dir
	Site       Site
	Browser    Browser
	Capture    Capture
	Stream     Stream
	Fetch      Fetch
	FFmpeg     FFmpeg
	Prompt     Prompt
	Metrics    Metrics
	DepManager DepManager
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"VODGRAB_APP_LOG_LEVEL" envDefault:"info"`
	// MaxRetries is the number of run-level retries for infrastructure failures.
	MaxRetries int `env:"VODGRAB_APP_MAX_RETRIES" envDefault:"3"`
	// RetryDelay is the pause before a run-level retry.
	RetryDelay time.Duration `env:"VODGRAB_APP_RETRY_DELAY" envDefault:"5s"`
}

// Dir holds directory paths for downloads, run state, and the cookie file.
type Dir struct {
	Downloads string `env:"VODGRAB_DIR_DOWNLOADS" envDefault:"./downloads"`
	// StateFile is where the run checkpoint is persisted between invocations.
	StateFile string `env:"VODGRAB_DIR_STATE_FILE" envDefault:"./run_state.json"`
	// CookieFile holds exported browser cookies in JSON format; empty means
	// the session starts unauthenticated.
	CookieFile string `env:"VODGRAB_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (d *Dir) SetAbsPaths() error {
	var err error
	if d.Downloads, err = filepath.Abs(d.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if d.StateFile, err = filepath.Abs(d.StateFile); err != nil {
		return fmt.Errorf("state file: %w", err)
	}

	if d.CookieFile != "" {
		if d.CookieFile, err = filepath.Abs(d.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Site holds the target site configuration.
type Site struct {
	HomeURL string `env:"VODGRAB_SITE_HOME_URL" envDefault:"https://net22.cc/home"`
	// VerifyKeyword marks URLs of the site's human-verification interstitial.
	VerifyKeyword string `env:"VODGRAB_SITE_VERIFY_KEYWORD" envDefault:"verify"`
}

// Browser holds browser automation configuration.
type Browser struct {
	Headless bool `env:"VODGRAB_BROWSER_HEADLESS" envDefault:"true"`
	// Bin overrides the autodetected browser binary.
	Bin               string        `env:"VODGRAB_BROWSER_BIN" envDefault:""`
	UserAgent         string        `env:"VODGRAB_BROWSER_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"` //nolint:lll
	NavigationTimeout time.Duration `env:"VODGRAB_BROWSER_NAVIGATION_TIMEOUT" envDefault:"45s"`
}

// Capture holds network capture filtering configuration.
type Capture struct {
	// StreamIndicator must appear in a URL for it to be considered a stream.
	StreamIndicator string `env:"VODGRAB_CAPTURE_STREAM_INDICATOR" envDefault:".m3u8"`
	// SkipKeywordList is a comma-separated list of substrings that disqualify
	// a URL (trackers, DRM endpoints, beacons).
	SkipKeywordList string `env:"VODGRAB_CAPTURE_SKIP_KEYWORDS" envDefault:"ping.gif,drm,google,analytics,jwpltx,prcdn"`
	// SettleWindow is how long to keep collecting requests after playback starts.
	SettleWindow time.Duration `env:"VODGRAB_CAPTURE_SETTLE_WINDOW" envDefault:"8s"`

	// SkipKeywords is the parsed skip list.
	SkipKeywords []string `env:"-"`
}

func (c *Capture) parseSkipKeywords() {
	for _, kw := range strings.Split(c.SkipKeywordList, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			c.SkipKeywords = append(c.SkipKeywords, strings.ToLower(kw))
		}
	}
}

// Stream holds stream classification configuration.
type Stream struct {
	// AudioMarker is the path fragment identifying audio-only streams.
	AudioMarker string `env:"VODGRAB_STREAM_AUDIO_MARKER" envDefault:"/a/"`
	// Extension is required alongside AudioMarker for the audio class.
	Extension string `env:"VODGRAB_STREAM_EXTENSION" envDefault:".m3u8"`
	// VideoToken identifies video streams regardless of extension.
	VideoToken string `env:"VODGRAB_STREAM_VIDEO_TOKEN" envDefault:"::kp"`
	// PreferredHost breaks ties between equally ranked video candidates.
	PreferredHost string `env:"VODGRAB_STREAM_PREFERRED_HOST" envDefault:"net51.cc"`
	// QualityOrderList ranks video candidates, best first.
	QualityOrderList string `env:"VODGRAB_STREAM_QUALITY_ORDER" envDefault:"1080p,720p,480p,360p"`

	// QualityOrder is the parsed quality ranking.
	QualityOrder []string `env:"-"`
}

func (s *Stream) parseQualityOrder() {
	for _, q := range strings.Split(s.QualityOrderList, ",") {
		q = strings.TrimSpace(q)
		if q != "" {
			s.QualityOrder = append(s.QualityOrder, strings.ToLower(q))
		}
	}
}

// Fetch holds stream download configuration.
type Fetch struct {
	// Retries is the number of attempts per stream.
	Retries int `env:"VODGRAB_FETCH_RETRIES" envDefault:"5"`
	// BackoffBase is the base delay; attempt n waits base*2^(n-1).
	BackoffBase         time.Duration `env:"VODGRAB_FETCH_BACKOFF_BASE" envDefault:"5s"`
	ConcurrentFragments int           `env:"VODGRAB_FETCH_CONCURRENT_FRAGMENTS" envDefault:"4"`
	FragmentRetries     int           `env:"VODGRAB_FETCH_FRAGMENT_RETRIES" envDefault:"10"`
	ChunkSize           string        `env:"VODGRAB_FETCH_CHUNK_SIZE" envDefault:"10M"`
	PreferNativeHLS     bool          `env:"VODGRAB_FETCH_PREFER_NATIVE_HLS" envDefault:"true"`
	UserAgent           string        `env:"VODGRAB_FETCH_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"` //nolint:lll
	Referer             string        `env:"VODGRAB_FETCH_REFERER" envDefault:"https://net51.cc/"`
}

// FFmpeg holds merge step configuration.
type FFmpeg struct {
	// CodecCopy remuxes without re-encoding.
	CodecCopy bool `env:"VODGRAB_FFMPEG_CODEC_COPY" envDefault:"true"`
	// FastStart moves the moov atom to the front of the output.
	FastStart bool `env:"VODGRAB_FFMPEG_FAST_START" envDefault:"true"`
}

// Prompt holds interactive selection configuration.
type Prompt struct {
	DefaultLanguage string `env:"VODGRAB_PROMPT_DEFAULT_LANGUAGE" envDefault:"English"`
	// PreferredLanguageList shortlists languages shown first, comma-separated.
	PreferredLanguageList string `env:"VODGRAB_PROMPT_PREFERRED_LANGUAGES" envDefault:""`

	// PreferredLanguages is the parsed shortlist.
	PreferredLanguages []string `env:"-"`
}

func (p *Prompt) parsePreferredLanguages() {
	if p.PreferredLanguageList == "" {
		return
	}

	for _, lang := range strings.Split(p.PreferredLanguageList, ",") {
		lang = strings.TrimSpace(lang)
		if lang != "" {
			p.PreferredLanguages = append(p.PreferredLanguages, lang)
		}
	}
}

// Metrics holds the optional Prometheus endpoint configuration.
type Metrics struct {
	Enabled         bool          `env:"VODGRAB_METRICS_ENABLED" envDefault:"false"`
	Addr            string        `env:"VODGRAB_METRICS_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"VODGRAB_METRICS_SHUTDOWN_TIMEOUT" envDefault:"3s"`
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where downloaded binaries are stored.
	BinsDir string `env:"VODGRAB_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries resolves yt-dlp and ffmpeg from PATH instead of
	// downloading them.
	UseSystemBinaries bool `env:"VODGRAB_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`

	// ffmpeg binary URLs per platform.
	FFmpegLinuxARM64 string `env:"VODGRAB_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64 string `env:"VODGRAB_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpLinuxARM64 string `env:"VODGRAB_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64 string `env:"VODGRAB_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Capture.parseSkipKeywords()
	cfg.Stream.parseQualityOrder()
	cfg.Prompt.parsePreferredLanguages()
	cfg.applyFallbacks()

	return cfg, nil
}

// applyFallbacks guards timeouts and retry counts against zero or negative
// values from the environment.
func (c *Config) applyFallbacks() {
	if c.App.MaxRetries <= 0 {
		c.App.MaxRetries = consts.DefaultRunRetries
	}

	if c.App.RetryDelay <= 0 {
		c.App.RetryDelay = consts.DefaultRunRetryDelay
	}

	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = consts.DefaultNavigationTimeout
	}

	if c.Capture.SettleWindow <= 0 {
		c.Capture.SettleWindow = consts.DefaultSettleWindow
	}

	if c.Fetch.Retries <= 0 {
		c.Fetch.Retries = consts.DefaultFetchRetries
	}

	if c.Fetch.BackoffBase <= 0 {
		c.Fetch.BackoffBase = consts.DefaultBackoffBase
	}
}
