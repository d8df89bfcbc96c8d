// entry point of the application
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"vodgrab/internal/artifacts"
	"vodgrab/internal/browser"
	"vodgrab/internal/capture"
	"vodgrab/internal/checkpoint"
	"vodgrab/internal/config"
	"vodgrab/internal/depmanager"
	"vodgrab/internal/downloader"
	"vodgrab/internal/merge"
	"vodgrab/internal/observability"
	"vodgrab/internal/pipeline"
	"vodgrab/internal/prompt"
	httpserver "vodgrab/pkg/http/server"
	"vodgrab/pkg/logger"
	"vodgrab/pkg/maths"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		Level: cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	var metricsSrv *httpserver.Server
	if cfg.Metrics.Enabled {
		metricsSrv = httpserver.New(metrics.Handler(), httpserver.Options{
			Addr:            cfg.Metrics.Addr,
			ShutdownTimeout: cfg.Metrics.ShutdownTimeout,
		})

		go func() {
			if nerr := <-metricsSrv.Notify(); nerr != nil && !errors.Is(nerr, http.ErrServerClosed) {
				log.Error("metrics server stopped", slog.Any("error", nerr))
			}
		}()

		log.InfoContext(ctx, "metrics endpoint started", slog.String("addr", cfg.Metrics.Addr))
	}

	depMgr := depmanager.New(log, cfg.DepManager)

	log.InfoContext(ctx, "resolving yt-dlp and ffmpeg. it may take some time...")

	if err := depMgr.Start(ctx); err != nil {
		log.ErrorContext(ctx, "dependency setup failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	session := browser.NewRod(log, cfg.Browser, cfg.Site, cfg.Dir.CookieFile)
	store := checkpoint.New(log, cfg.Dir.StateFile)
	registry := artifacts.New(log)
	captureSession := capture.NewSession(log, cfg.Capture, metrics)

	fetcher := downloader.NewYTdlp(log, cfg.Fetch, depMgr.BinPath(depmanager.BinaryYTdlp), metrics)
	fetcher.SetProgressFunc(func(update downloader.ProgressUpdate) {
		fmt.Printf("\r  %.1f%%  %s  ETA %s   ", update.Percent, update.Rate, update.ETA)

		if maths.RoundFloat64ToInt(update.Percent) >= 100 {
			fmt.Println()
		}
	})

	muxer := merge.New(log, cfg.FFmpeg, depMgr.BinPath(depmanager.BinaryFFmpeg), registry, metrics)

	pipe := pipeline.New(log, cfg, pipeline.Deps{
		Session:   session,
		Chooser:   prompt.NewTUI(),
		Store:     store,
		Fetcher:   fetcher,
		Muxer:     muxer,
		Capture:   captureSession,
		Artifacts: registry,
		Metrics:   metrics,
	})

	err = pipe.Execute(ctx)

	if metricsSrv != nil {
		if serr := metricsSrv.Shutdown(); serr != nil {
			log.Error(serr.Error())
		}
	}

	switch {
	case err == nil:
		log.InfoContext(ctx, "vodgrab finished")
	case errors.Is(err, context.Canceled):
		log.InfoContext(ctx, "vodgrab interrupted")
	default:
		log.Error("vodgrab failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
