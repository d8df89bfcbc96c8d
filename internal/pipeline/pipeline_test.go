package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vodgrab/internal/artifacts"
	"vodgrab/internal/browser"
	"vodgrab/internal/capture"
	"vodgrab/internal/checkpoint"
	"vodgrab/internal/config"
	"vodgrab/internal/downloader"
	"vodgrab/internal/entity"
	"vodgrab/internal/errs"
	"vodgrab/internal/prompt"
	"vodgrab/pkg/gen"
	"vodgrab/pkg/ptr"
)

type fakeMuxer struct {
	err   error
	calls int
}

func (f *fakeMuxer) Merge(_ context.Context, video, audio, output string) error {
	f.calls++

	if f.err != nil {
		return f.err
	}

	if audio != "" {
		os.Remove(audio)
	}

	return os.Rename(video, output)
}

type fixture struct {
	cfg     *config.Config
	session *browser.Scripted
	chooser *prompt.Scripted
	store   *checkpoint.Store
	fetcher *downloader.Mock
	muxer   *fakeMuxer
	reg     *artifacts.Registry
	p       *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		App: config.App{MaxRetries: 2, RetryDelay: time.Millisecond},
		Dir: config.Dir{
			Downloads: filepath.Join(dir, "downloads"),
			StateFile: filepath.Join(dir, "run_state.json"),
		},
		Capture: config.Capture{
			StreamIndicator: ".m3u8",
			SkipKeywords:    []string{"ping.gif", "drm"},
			SettleWindow:    time.Millisecond,
		},
		Stream: config.Stream{
			AudioMarker:   "/a/",
			Extension:     ".m3u8",
			VideoToken:    "::kp",
			PreferredHost: "net51.cc",
			QualityOrder:  []string{"1080p", "720p", "480p", "360p"},
		},
		Prompt: config.Prompt{DefaultLanguage: "English"},
	}

	f := &fixture{
		cfg:     cfg,
		session: &browser.Scripted{},
		chooser: &prompt.Scripted{},
		store:   checkpoint.New(log, cfg.Dir.StateFile),
		fetcher: &downloader.Mock{},
		muxer:   &fakeMuxer{},
		reg:     artifacts.New(log),
	}

	f.p = New(log, cfg, Deps{
		Session:   f.session,
		Chooser:   f.chooser,
		Store:     f.store,
		Fetcher:   f.fetcher,
		Muxer:     f.muxer,
		Capture:   capture.NewSession(log, cfg.Capture, nil),
		Artifacts: f.reg,
	})
	f.p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return f
}

func (f *fixture) seriesSession() {
	f.session.Titles = []string{"Dark Winds", "Dark Matter"}
	f.session.SeasonsList = []entity.Season{{Text: "Season 1", Value: "s1"}}
	f.session.EpisodesList = []entity.Episode{
		{Number: 1, Title: "Pilot"},
		{Number: 2, Title: "The Hunt"},
	}
	f.session.URLsPerOpen = map[int][]string{
		0: {
			"https://net51.cc/v/720p/e0.m3u8::kp",
			"https://net51.cc/a/eng/e0.m3u8",
			"https://tracker.example.com/ping.gif",
		},
		1: {
			"https://net51.cc/v/720p/e1.m3u8::kp",
			"https://net51.cc/a/eng/e1.m3u8",
		},
	}
}

func readState(t *testing.T, path string) *entity.Checkpoint {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}

	cp := entity.NewCheckpoint()
	if err := json.Unmarshal(data, cp); err != nil {
		t.Fatalf("parse state file: %v", err)
	}

	return cp
}

func TestExecuteSeriesFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seriesSession()

	f.chooser.TextAnswers = []string{"dark winds"}
	f.chooser.OneAnswers = []int{0, 0} // title, season
	f.chooser.ManyAnswers = [][]int{{0, 1}}

	if err := f.p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	seasonDir := filepath.Join(f.cfg.Dir.Downloads, "Dark Winds", "Season 1")

	for _, name := range []string{"Pilot.mp4", "The Hunt.mp4"} {
		if _, err := os.Stat(filepath.Join(seasonDir, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}

	if f.fetcher.Calls() != 4 {
		t.Errorf("fetch calls = %d, want 4 (video+audio per episode)", f.fetcher.Calls())
	}

	cp := readState(t, f.cfg.Dir.StateFile)
	if !cp.RunCompleted {
		t.Error("expected runCompleted recorded")
	}

	if cp.ItemStatus(gen.Key("Season 1", "Pilot")) != entity.ItemStatusCompleted {
		t.Errorf("Pilot status = %q", cp.ItemStatus(gen.Key("Season 1", "Pilot")))
	}
}

func TestExecuteMovieFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.Titles = []string{"The Deep"}
	f.session.PlayURLs = []string{"https://net51.cc/v/1080p/movie.m3u8::kp"}

	f.chooser.TextAnswers = []string{"the deep"}
	f.chooser.OneAnswers = []int{0}

	if err := f.p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	output := filepath.Join(f.cfg.Dir.Downloads, "The Deep", "The Deep.mp4")
	if _, err := os.Stat(output); err != nil {
		t.Errorf("expected movie output: %v", err)
	}

	// Muxed stream, no separate audio: merge happens via rename.
	if f.fetcher.Calls() != 1 {
		t.Errorf("fetch calls = %d, want 1", f.fetcher.Calls())
	}
}

func TestExecuteResumeSkipsPromptsAndCompletedItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seriesSession()

	saved := entity.NewCheckpoint()
	saved.SearchQuery = "dark winds"
	saved.TitleIndex = ptr.Of(0)
	saved.SeasonIndex = ptr.Of(0)
	saved.EpisodeIndices = []int{0, 1}
	saved.SetItemStatus(gen.Key("Season 1", "Pilot"), entity.ItemStatusCompleted)
	f.store.Save(saved)

	if err := f.p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if len(f.chooser.Prompts) != 0 {
		t.Errorf("expected no prompts on resume, got %v", f.chooser.Prompts)
	}

	// Only the second episode should be fetched.
	if f.fetcher.Calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", f.fetcher.Calls())
	}

	for _, fetched := range f.fetcher.Fetched {
		if fetched[0] == "https://net51.cc/v/720p/e0.m3u8::kp" {
			t.Error("completed episode must not be re-fetched")
		}
	}
}

func TestExecuteItemIsolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seriesSession()
	f.fetcher.Errs = map[string]error{
		"https://net51.cc/v/720p/e0.m3u8::kp": errors.New("cdn reset"),
	}

	f.chooser.TextAnswers = []string{"dark winds"}
	f.chooser.OneAnswers = []int{0, 0}
	f.chooser.ManyAnswers = [][]int{{0, 1}}

	if err := f.p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	cp := readState(t, f.cfg.Dir.StateFile)

	if cp.ItemStatus(gen.Key("Season 1", "Pilot")) != entity.ItemStatusFailed {
		t.Errorf("Pilot status = %q, want failed", cp.ItemStatus(gen.Key("Season 1", "Pilot")))
	}

	if cp.ItemStatus(gen.Key("Season 1", "The Hunt")) != entity.ItemStatusCompleted {
		t.Errorf("The Hunt status = %q, want completed", cp.ItemStatus(gen.Key("Season 1", "The Hunt")))
	}

	if cp.RunCompleted {
		t.Error("run with failed items must not be marked completed")
	}
}

func TestExecuteAuthFailureDiscardsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.AuthErr = &errs.AuthError{Reason: "stuck on verification page"}

	saved := entity.NewCheckpoint()
	saved.SearchQuery = "dark winds"
	f.store.Save(saved)

	err := f.p.Execute(context.Background())

	var authErr *errs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Execute() error = %v, want *errs.AuthError", err)
	}

	if _, err := os.Stat(f.cfg.Dir.StateFile); !os.IsNotExist(err) {
		t.Error("expected checkpoint discarded after auth failure")
	}
}

func TestExecuteInfrastructureRetry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.StartErr = errors.New("browser refused to launch")

	err := f.p.Execute(context.Background())

	var infraErr *errs.InfrastructureError
	if !errors.As(err, &infraErr) {
		t.Fatalf("Execute() error = %v, want *errs.InfrastructureError", err)
	}

	starts := 0
	for _, call := range f.session.Calls {
		if call == "start" {
			starts++
		}
	}

	// Initial attempt plus MaxRetries.
	if starts != 3 {
		t.Errorf("start calls = %d, want 3", starts)
	}

	if _, err := os.Stat(f.cfg.Dir.StateFile); !os.IsNotExist(err) {
		t.Error("expected checkpoint discarded after exhausted retries")
	}
}

func TestExecuteCancellationDiscardsStateAndArtifacts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seriesSession()

	ctx, cancel := context.WithCancel(context.Background())

	cancelingFetcher := fetchFunc(func(fctx context.Context, url, out string) error {
		cancel()

		return fctx.Err()
	})
	f.p.fetcher = cancelingFetcher

	f.chooser.TextAnswers = []string{"dark winds"}
	f.chooser.OneAnswers = []int{0, 0}
	f.chooser.ManyAnswers = [][]int{{0}}

	err := f.p.Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}

	if _, err := os.Stat(f.cfg.Dir.StateFile); !os.IsNotExist(err) {
		t.Error("expected checkpoint discarded on cancellation")
	}

	// Partial files are gone from the registry.
	if got := f.reg.Paths(); len(got) != 0 {
		t.Errorf("expected artifacts swept, got %v", got)
	}
}

func TestExecuteUnclassifiedErrorAsksUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.Titles = []string{"x"}

	// No text answer queued: the query prompt fails with a plain error,
	// and the retry prompt answers Abort.
	f.chooser.OneAnswers = []int{1}

	err := f.p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	last := f.chooser.Prompts[len(f.chooser.Prompts)-1]
	if len(last) < 10 || last[:10] != "Run failed" {
		t.Errorf("expected a retry prompt, prompts = %v", f.chooser.Prompts)
	}
}

func TestExecutePromptAbortDiscardsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.Titles = []string{"x"}
	f.chooser.Abort = true

	err := f.p.Execute(context.Background())
	if !errors.Is(err, errs.ErrPromptAborted) {
		t.Fatalf("Execute() error = %v, want ErrPromptAborted", err)
	}

	if _, err := os.Stat(f.cfg.Dir.StateFile); !os.IsNotExist(err) {
		t.Error("expected checkpoint discarded on abort")
	}
}

func TestExecuteUnclassifiedRetryBounded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.session.Titles = []string{"x"}

	f.store.Save(entity.NewCheckpoint())

	// No text answer queued, so every attempt fails at the query prompt
	// with a plain error; the user keeps answering Retry.
	f.chooser.OneAnswers = []int{0, 0, 0, 0}

	err := f.p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	asked := 0
	for _, title := range f.chooser.Prompts {
		if len(title) >= 10 && title[:10] == "Run failed" {
			asked++
		}
	}

	// Retry prompts stop at MaxRetries; the final attempt fails outright.
	if asked != f.cfg.App.MaxRetries {
		t.Errorf("retry prompts = %d, want %d", asked, f.cfg.App.MaxRetries)
	}

	if _, err := os.Stat(f.cfg.Dir.StateFile); !os.IsNotExist(err) {
		t.Error("expected checkpoint discarded after exhausted retries")
	}
}

type fetchFunc func(ctx context.Context, url, outputPath string) error

func (f fetchFunc) Fetch(ctx context.Context, url, outputPath string) error {
	return f(ctx, url, outputPath)
}
