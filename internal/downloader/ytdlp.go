package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"vodgrab/internal/config"
	"vodgrab/internal/consts"
	"vodgrab/internal/errs"
	"vodgrab/internal/observability"
	"vodgrab/pkg/calc"
	"vodgrab/pkg/shellquote"
)

// YTdlp downloads streams by shelling out to yt-dlp. Failed attempts are
// retried with exponential backoff until cfg.Retries is exhausted.
type YTdlp struct {
	log     *slog.Logger
	cfg     config.Fetch
	bin     string
	metrics *observability.Metrics

	progress ProgressFunc

	// run and sleep are swappable for tests.
	run   func(ctx context.Context, url, outputPath string) error
	sleep func(ctx context.Context, d time.Duration) error
}

// NewYTdlp creates a yt-dlp fetcher using the binary at bin.
func NewYTdlp(log *slog.Logger, cfg config.Fetch, bin string, metrics *observability.Metrics) *YTdlp {
	d := &YTdlp{
		log:     log.With(slog.String("package", "downloader"), slog.String("downloader", consts.BinYTdlp)),
		cfg:     cfg,
		bin:     bin,
		metrics: metrics,
	}

	d.run = d.runOnce
	d.sleep = sleepCtx

	return d
}

// SetProgressFunc registers a callback for parsed progress lines.
func (d *YTdlp) SetProgressFunc(fn ProgressFunc) {
	d.progress = fn
}

// Fetch downloads url to outputPath, retrying transient failures. The delay
// before retry n is BackoffBase doubled per previous failure. A canceled
// context surfaces as the context error, not a download failure.
func (d *YTdlp) Fetch(ctx context.Context, url, outputPath string) error {
	retries := d.cfg.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error

	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			delay := calc.Backoff(d.cfg.BackoffBase, attempt-1)

			d.log.Warn("retrying download",
				"attempt", attempt+1,
				"max_attempts", retries,
				"delay", delay,
				"output", outputPath,
			)

			if d.metrics != nil {
				d.metrics.FetchRetries.Inc()
			}

			if err := d.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = d.run(ctx, url, outputPath)
		if lastErr == nil {
			if d.metrics != nil {
				d.metrics.FetchAttempts.WithLabelValues("success").Inc()
			}

			return nil
		}

		if d.metrics != nil {
			d.metrics.FetchAttempts.WithLabelValues("failure").Inc()
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		d.log.Warn("download attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	return &errs.DownloadError{
		URL:      url,
		Item:     outputPath,
		Attempts: retries,
		Err:      lastErr,
	}
}

func (d *YTdlp) args(url, outputPath string) []string {
	args := []string{
		"--no-part",
		"--no-warnings",
		"--newline",
		"--concurrent-fragments", fmt.Sprint(d.cfg.ConcurrentFragments),
		"--fragment-retries", fmt.Sprint(d.cfg.FragmentRetries),
		"--http-chunk-size", d.cfg.ChunkSize,
	}

	if d.cfg.UserAgent != "" {
		args = append(args, "--user-agent", d.cfg.UserAgent)
	}

	if d.cfg.Referer != "" {
		args = append(args, "--referer", d.cfg.Referer)
	}

	if d.cfg.PreferNativeHLS {
		args = append(args, "--hls-prefer-native")
	}

	return append(args, "-o", outputPath, url)
}

func (d *YTdlp) runOnce(ctx context.Context, url, outputPath string) error {
	args := d.args(url, outputPath)

	d.log.Debug("running yt-dlp", "cmd", shellquote.Join(d.bin, args))

	cmd := exec.CommandContext(ctx, d.bin, args...)

	// Combined output; yt-dlp writes progress to stdout and errors to stderr.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()

		return fmt.Errorf("start yt-dlp: %w", err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		d.consumeOutput(pr)
	}()

	err := cmd.Wait()
	pw.Close()
	<-done

	if err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}

	return nil
}

// consumeOutput parses progress lines. yt-dlp rewrites its progress line
// with carriage returns, so the scanner splits on CR as well as LF.
func (d *YTdlp) consumeOutput(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)

	for scanner.Scan() {
		line := scanner.Text()

		update, ok := ParseProgressLine(line)
		if !ok {
			continue
		}

		if d.progress != nil {
			d.progress(update)
		}
	}
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}

			return i + 1, data[:i], nil
		}
	}

	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}

	return 0, nil, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
