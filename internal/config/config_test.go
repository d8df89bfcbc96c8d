package config_test

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"vodgrab/internal/config"
	"vodgrab/internal/consts"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.App.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.App.LogLevel)
	}

	if cfg.App.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.App.MaxRetries)
	}

	if !filepath.IsAbs(cfg.Dir.Downloads) {
		t.Errorf("expected absolute downloads path, got %s", cfg.Dir.Downloads)
	}

	if !filepath.IsAbs(cfg.Dir.StateFile) {
		t.Errorf("expected absolute state file path, got %s", cfg.Dir.StateFile)
	}

	if cfg.Fetch.Retries != 5 {
		t.Errorf("Fetch.Retries = %d, want 5", cfg.Fetch.Retries)
	}

	if cfg.Fetch.BackoffBase != 5*time.Second {
		t.Errorf("Fetch.BackoffBase = %v, want 5s", cfg.Fetch.BackoffBase)
	}

	wantSkip := []string{"ping.gif", "drm", "google", "analytics", "jwpltx", "prcdn"}
	if !slices.Equal(cfg.Capture.SkipKeywords, wantSkip) {
		t.Errorf("SkipKeywords = %v, want %v", cfg.Capture.SkipKeywords, wantSkip)
	}

	wantQuality := []string{"1080p", "720p", "480p", "360p"}
	if !slices.Equal(cfg.Stream.QualityOrder, wantQuality) {
		t.Errorf("QualityOrder = %v, want %v", cfg.Stream.QualityOrder, wantQuality)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("VODGRAB_CAPTURE_SKIP_KEYWORDS", "Beacon, tracker ,")
	t.Setenv("VODGRAB_STREAM_QUALITY_ORDER", "720p,480p")
	t.Setenv("VODGRAB_PROMPT_PREFERRED_LANGUAGES", "English,German")
	t.Setenv("VODGRAB_FETCH_RETRIES", "2")
	t.Setenv("VODGRAB_DEPMANAGER_USE_SYSTEM_BINARIES", "false")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	wantSkip := []string{"beacon", "tracker"}
	if !slices.Equal(cfg.Capture.SkipKeywords, wantSkip) {
		t.Errorf("SkipKeywords = %v, want %v", cfg.Capture.SkipKeywords, wantSkip)
	}

	wantQuality := []string{"720p", "480p"}
	if !slices.Equal(cfg.Stream.QualityOrder, wantQuality) {
		t.Errorf("QualityOrder = %v, want %v", cfg.Stream.QualityOrder, wantQuality)
	}

	wantLangs := []string{"English", "German"}
	if !slices.Equal(cfg.Prompt.PreferredLanguages, wantLangs) {
		t.Errorf("PreferredLanguages = %v, want %v", cfg.Prompt.PreferredLanguages, wantLangs)
	}

	if cfg.Fetch.Retries != 2 {
		t.Errorf("Fetch.Retries = %d, want 2", cfg.Fetch.Retries)
	}

	if cfg.DepManager.UseSystemBinaries {
		t.Error("UseSystemBinaries should be false")
	}
}

func TestNewFallbacksOnZeroValues(t *testing.T) {
	t.Setenv("VODGRAB_APP_MAX_RETRIES", "0")
	t.Setenv("VODGRAB_APP_RETRY_DELAY", "0s")
	t.Setenv("VODGRAB_BROWSER_NAVIGATION_TIMEOUT", "0s")
	t.Setenv("VODGRAB_CAPTURE_SETTLE_WINDOW", "0s")
	t.Setenv("VODGRAB_FETCH_RETRIES", "-1")
	t.Setenv("VODGRAB_FETCH_BACKOFF_BASE", "0s")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.App.MaxRetries != consts.DefaultRunRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.App.MaxRetries, consts.DefaultRunRetries)
	}

	if cfg.App.RetryDelay != consts.DefaultRunRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", cfg.App.RetryDelay, consts.DefaultRunRetryDelay)
	}

	if cfg.Browser.NavigationTimeout != consts.DefaultNavigationTimeout {
		t.Errorf("NavigationTimeout = %v, want %v", cfg.Browser.NavigationTimeout, consts.DefaultNavigationTimeout)
	}

	if cfg.Capture.SettleWindow != consts.DefaultSettleWindow {
		t.Errorf("SettleWindow = %v, want %v", cfg.Capture.SettleWindow, consts.DefaultSettleWindow)
	}

	if cfg.Fetch.Retries != consts.DefaultFetchRetries {
		t.Errorf("Fetch.Retries = %d, want %d", cfg.Fetch.Retries, consts.DefaultFetchRetries)
	}

	if cfg.Fetch.BackoffBase != consts.DefaultBackoffBase {
		t.Errorf("Fetch.BackoffBase = %v, want %v", cfg.Fetch.BackoffBase, consts.DefaultBackoffBase)
	}
}
