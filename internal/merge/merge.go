// Package merge combines downloaded video and audio streams into the final
// container via ffmpeg.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"vodgrab/internal/artifacts"
	"vodgrab/internal/config"
	"vodgrab/internal/errs"
	"vodgrab/internal/observability"
	"vodgrab/pkg/shellquote"
)

// Muxer merges a video file and an optional audio file into output.
type Muxer interface {
	Merge(ctx context.Context, video, audio, output string) error
}

// FFmpeg muxes via the ffmpeg binary. When no audio stream was captured the
// video file is renamed into place instead, since it already carries sound.
type FFmpeg struct {
	log       *slog.Logger
	cfg       config.FFmpeg
	bin       string
	artifacts *artifacts.Registry
	metrics   *observability.Metrics

	// run is swappable for tests.
	run func(ctx context.Context, args []string) error
}

// New creates an ffmpeg muxer using the binary at bin.
func New(log *slog.Logger, cfg config.FFmpeg, bin string, reg *artifacts.Registry, metrics *observability.Metrics) *FFmpeg {
	m := &FFmpeg{
		log:       log.With(slog.String("package", "merge")),
		cfg:       cfg,
		bin:       bin,
		artifacts: reg,
		metrics:   metrics,
	}

	m.run = m.runFFmpeg

	return m
}

// Merge produces output from video and audio. On success the intermediate
// files are removed and deregistered. On failure they stay on disk and stay
// registered, and a MergingError is returned.
func (m *FFmpeg) Merge(ctx context.Context, video, audio, output string) error {
	if audio == "" {
		return m.renameOnly(video, output)
	}

	args := []string{"-y", "-i", video, "-i", audio}

	if m.cfg.CodecCopy {
		args = append(args, "-c", "copy")
	}

	if m.cfg.FastStart {
		args = append(args, "-movflags", "+faststart")
	}

	args = append(args, output)

	m.log.Debug("running ffmpeg", "cmd", shellquote.Join(m.bin, args))

	if err := m.run(ctx, args); err != nil {
		if m.metrics != nil {
			m.metrics.MergesTotal.WithLabelValues("failure").Inc()
		}

		return &errs.MergingError{Output: output, Err: err}
	}

	m.cleanup(video)
	m.cleanup(audio)

	if m.metrics != nil {
		m.metrics.MergesTotal.WithLabelValues("success").Inc()
	}

	m.log.Info("merged streams", "output", output)

	return nil
}

// renameOnly promotes a muxed video-only download to the final output.
func (m *FFmpeg) renameOnly(video, output string) error {
	if err := os.Rename(video, output); err != nil {
		if m.metrics != nil {
			m.metrics.MergesTotal.WithLabelValues("failure").Inc()
		}

		return &errs.MergingError{Output: output, Err: err}
	}

	if m.artifacts != nil {
		m.artifacts.Deregister(video)
	}

	if m.metrics != nil {
		m.metrics.MergesTotal.WithLabelValues("rename").Inc()
	}

	m.log.Info("no separate audio stream, renamed video into place", "output", output)

	return nil
}

func (m *FFmpeg) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn("failed to remove intermediate file", "path", path, "error", err)
	}

	if m.artifacts != nil {
		m.artifacts.Deregister(path)
	}
}

func (m *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, m.bin, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(out))
	}

	return nil
}

// tail keeps the last part of ffmpeg's output, where the actual error is.
func tail(out []byte) string {
	const keep = 512
	if len(out) <= keep {
		return string(out)
	}

	return "..." + string(out[len(out)-keep:])
}
