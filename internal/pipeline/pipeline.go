// Package pipeline orchestrates a full run: authenticate, search, select,
// capture, download and merge. Every user decision and item outcome is
// checkpointed as soon as it is known, so a run that ends with failed items
// can be rerun to retry just those items.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vodgrab/internal/artifacts"
	"vodgrab/internal/browser"
	"vodgrab/internal/capture"
	"vodgrab/internal/checkpoint"
	"vodgrab/internal/config"
	"vodgrab/internal/downloader"
	"vodgrab/internal/errs"
	"vodgrab/internal/merge"
	"vodgrab/internal/observability"
	"vodgrab/internal/prompt"
)

// Deps are the collaborators a pipeline drives.
type Deps struct {
	Session   browser.Session
	Chooser   prompt.Chooser
	Store     *checkpoint.Store
	Fetcher   downloader.Fetcher
	Muxer     merge.Muxer
	Capture   *capture.Session
	Artifacts *artifacts.Registry
	Metrics   *observability.Metrics
}

// Pipeline runs the capture-select-download-merge flow end to end.
type Pipeline struct {
	log *slog.Logger
	cfg *config.Config

	session   browser.Session
	chooser   prompt.Chooser
	store     *checkpoint.Store
	fetcher   downloader.Fetcher
	muxer     merge.Muxer
	capture   *capture.Session
	artifacts *artifacts.Registry
	metrics   *observability.Metrics

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline.
func New(log *slog.Logger, cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		log:       log.With(slog.String("package", "pipeline")),
		cfg:       cfg,
		session:   deps.Session,
		chooser:   deps.Chooser,
		store:     deps.Store,
		fetcher:   deps.Fetcher,
		muxer:     deps.Muxer,
		capture:   deps.Capture,
		artifacts: deps.Artifacts,
		metrics:   deps.Metrics,
		sleep:     sleepCtx,
	}
}

// Execute runs the pipeline, retrying infrastructure failures and asking the
// user what to do with unclassified ones, up to App.MaxRetries either way.
// Cancellation and prompt abort sweep partial files and discard the
// checkpoint; only a run that finishes with failed items leaves state behind
// for the next invocation to retry.
func (p *Pipeline) Execute(ctx context.Context) error {
	if p.metrics != nil {
		p.metrics.RunsStarted.Inc()
		defer p.metrics.RunTimer()()
	}

	for attempt := 0; ; attempt++ {
		err := p.runOnce(ctx)
		if err == nil {
			if p.metrics != nil {
				p.metrics.RunsCompleted.Inc()
			}

			return nil
		}

		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.log.Info("run canceled, discarding partial files and run state")
			p.artifacts.Sweep()
			p.store.Delete()

			return err
		}

		if errors.Is(err, errs.ErrPromptAborted) {
			p.log.Info("run aborted at prompt, discarding partial files and run state")
			p.artifacts.Sweep()
			p.store.Delete()

			return err
		}

		var authErr *errs.AuthError
		if errors.As(err, &authErr) {
			// Saved decisions belong to a session that no longer exists.
			p.log.Error("authentication failed, discarding saved run state", "error", err)
			p.artifacts.Sweep()
			p.store.Delete()

			if p.metrics != nil {
				p.metrics.RunsFailed.Inc()
			}

			return err
		}

		var infraErr *errs.InfrastructureError
		if errors.As(err, &infraErr) {
			if attempt < p.cfg.App.MaxRetries {
				p.log.Warn("infrastructure failure, retrying run",
					"attempt", attempt+1,
					"max_retries", p.cfg.App.MaxRetries,
					"delay", p.cfg.App.RetryDelay,
					"error", err,
				)

				if p.metrics != nil {
					p.metrics.RunRetries.Inc()
				}

				if serr := p.sleep(ctx, p.cfg.App.RetryDelay); serr != nil {
					p.artifacts.Sweep()
					p.store.Delete()

					return serr
				}

				continue
			}

			p.log.Error("infrastructure retries exhausted, discarding run state", "error", err)
			p.artifacts.Sweep()
			p.store.Delete()

			if p.metrics != nil {
				p.metrics.RunsFailed.Inc()
			}

			return err
		}

		retry := false
		if attempt < p.cfg.App.MaxRetries {
			if ok, perr := p.askRetry(ctx, err); perr == nil {
				retry = ok
			}
		}

		if retry {
			p.log.Info("retrying run at user request")

			continue
		}

		p.log.Error("run failed, discarding partial files and run state", "error", err)
		p.artifacts.Sweep()
		p.store.Delete()

		if p.metrics != nil {
			p.metrics.RunsFailed.Inc()
		}

		return err
	}
}

// askRetry asks the user whether to retry after an error the pipeline
// cannot classify.
func (p *Pipeline) askRetry(ctx context.Context, runErr error) (bool, error) {
	p.log.Error("run failed", "error", runErr)

	choice, err := p.chooser.ChooseOne(ctx, "Run failed: "+runErr.Error(), []string{"Retry", "Abort"})
	if err != nil {
		return false, err
	}

	return choice == 0, nil
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
